package chat

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartcareconnect/smartcare-api/databases"
	"github.com/smartcareconnect/smartcare-api/models"
)

// memStore is an in-memory messages collection that notifies watchers on writes
type memStore struct {
	mu        sync.Mutex
	msgs      []models.Message
	streams   []*memStream
	finds     int
	updates   map[primitive.ObjectID]int
	inserts   int
	findErr   error
	insertErr error
	updateErr error
	watchErr  error
	// findHook runs before Find reads, with the 1-based call number
	findHook func(ctx context.Context, call int)
}

func newMemStore(msgs ...models.Message) *memStore {
	return &memStore{msgs: msgs, updates: map[primitive.ObjectID]int{}}
}

func (s *memStore) Find(ctx context.Context, filter interface{}, _ ...*options.FindOptions) ([]models.Message, error) {
	s.mu.Lock()
	s.finds++
	call, hook, findErr := s.finds, s.findHook, s.findErr
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, call)
	}
	if findErr != nil {
		return nil, findErr
	}

	appointmentID := filter.(bson.M)["appointmentId"]
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.msgs {
		if m.AppointmentID == appointmentID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	s.mu.Lock()
	if s.insertErr != nil {
		s.mu.Unlock()
		return nil, s.insertErr
	}
	m := document.(models.Message)
	s.msgs = append(s.msgs, m)
	s.inserts++
	s.mu.Unlock()

	s.notify()
	return insertResult{id: m.ID}, nil
}

func (s *memStore) UpdateOne(_ context.Context, filter interface{}, update interface{}, _ ...*options.UpdateOptions) error {
	f := filter.(bson.M)
	id := f["_id"].(primitive.ObjectID)

	s.mu.Lock()
	s.updates[id]++
	if s.updateErr != nil {
		s.mu.Unlock()
		return s.updateErr
	}
	changed := false
	for i := range s.msgs {
		if s.msgs[i].ID == id && !s.msgs[i].Read {
			s.msgs[i].Read = true
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

func (s *memStore) Watch(_ context.Context, _ interface{}, _ ...*options.ChangeStreamOptions) (databases.ChangeStreamHelper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	st := &memStream{events: make(chan struct{}, 64), broken: make(chan struct{})}
	s.streams = append(s.streams, st)
	return st, nil
}

func (s *memStore) add(m models.Message) {
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
	s.notify()
}

func (s *memStore) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.streams {
		select {
		case st.events <- struct{}{}:
		default:
		}
	}
}

// breakStreams fails every open stream with err
func (s *memStore) breakStreams(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.streams {
		st.fail(err)
	}
	s.streams = nil
}

func (s *memStore) openStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range s.streams {
		if !st.isClosed() {
			n++
		}
	}
	return n
}

func (s *memStore) updateCount(id primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[id]
}

func (s *memStore) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

func (s *memStore) setFindErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findErr = err
}

type memStream struct {
	events chan struct{}
	broken chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

func (st *memStream) Next(ctx context.Context) bool {
	select {
	case <-st.events:
		return true
	case <-st.broken:
		return false
	case <-ctx.Done():
		st.mu.Lock()
		st.err = ctx.Err()
		st.mu.Unlock()
		return false
	}
}

func (st *memStream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

func (st *memStream) Close(context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.closed = true
	return nil
}

func (st *memStream) isClosed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.closed
}

func (st *memStream) fail(err error) {
	st.once.Do(func() {
		st.mu.Lock()
		st.err = err
		st.mu.Unlock()
		close(st.broken)
	})
}

type insertResult struct{ id interface{} }

func (r insertResult) Decode() interface{} { return r.id }

// memBlobs is an in-memory blob store
type memBlobs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted []string
	// fail maps a path prefix to the error uploads under it return
	fail map[string]error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string][]byte{}, fail: map[string]error{}}
}

func (b *memBlobs) Upload(_ context.Context, path string, r io.Reader, _ int64, _ string) (string, error) {
	for prefix, err := range b.fail {
		if strings.HasPrefix(path, prefix) {
			return "", err
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[path] = data
	return "https://blobs.test/" + path, nil
}

func (b *memBlobs) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, path)
	b.deleted = append(b.deleted, path)
	return nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

func (b *memBlobs) paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for p := range b.blobs {
		out = append(out, p)
	}
	return out
}

// collector records what a Listener receives
type collector struct {
	snaps chan Snapshot
	errs  chan error
}

func newCollector() *collector {
	return &collector{snaps: make(chan Snapshot, 64), errs: make(chan error, 64)}
}

func (c *collector) listener() Listener {
	return Listener{
		OnSnapshot: func(s Snapshot) { c.snaps <- s },
		OnError:    func(err error) { c.errs <- err },
	}
}

func (c *collector) nextSnapshot(t *testing.T) Snapshot {
	t.Helper()
	select {
	case s := <-c.snaps:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func (c *collector) nextError(t *testing.T) error {
	t.Helper()
	select {
	case err := <-c.errs:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
		return nil
	}
}

// stamp returns a timestamp offset from a fixed base
func stamp(offset time.Duration) *primitive.DateTime {
	dt := primitive.NewDateTimeFromTime(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC).Add(offset))
	return &dt
}

func message(appointmentID, text string, ts *primitive.DateTime) models.Message {
	return models.Message{
		ID:            primitive.NewObjectID(),
		AppointmentID: appointmentID,
		SenderID:      "d1",
		SenderType:    models.SenderDoctor,
		RecipientID:   "p1",
		Text:          text,
		Timestamp:     ts,
	}
}

// makeWAV builds a PCM WAV of the given length
func makeWAV(sampleRate, channels, bitsPerSample int, length time.Duration) []byte {
	byteRate := sampleRate * channels * bitsPerSample / 8
	dataSize := int(float64(byteRate) * length.Seconds())

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

var errBoom = errors.New("boom")
