package call

import (
	"context"
	"errors"
	"sync"

	"github.com/smartcareconnect/smartcare-api/models"
)

var errDenied = errors.New("permission denied")

type fakeTrack struct {
	kind Kind

	mu      sync.Mutex
	enabled bool
	stopped bool
}

func newTrack(kind Kind) *fakeTrack {
	return &fakeTrack{kind: kind, enabled: true}
}

func (t *fakeTrack) Kind() Kind { return t.kind }

func (t *fakeTrack) Enable(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = on
}

func (t *fakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeMedia struct {
	mu       sync.Mutex
	deny     map[Kind]bool
	acquired []*fakeTrack
}

func newMedia(deny ...Kind) *fakeMedia {
	m := &fakeMedia{deny: map[Kind]bool{}}
	for _, k := range deny {
		m.deny[k] = true
	}
	return m
}

func (m *fakeMedia) Acquire(_ context.Context, kind Kind) (Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deny[kind] {
		return nil, errDenied
	}
	t := newTrack(kind)
	m.acquired = append(m.acquired, t)
	return t, nil
}

func (m *fakeMedia) allow(kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deny, kind)
}

func (m *fakeMedia) tracks() []*fakeTrack {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*fakeTrack(nil), m.acquired...)
}

type fakeParticipant struct {
	id     string
	tracks []Track
}

func (p *fakeParticipant) Identity() string { return p.id }
func (p *fakeParticipant) Tracks() []Track  { return p.tracks }

func participant(id string, kinds ...Kind) *fakeParticipant {
	p := &fakeParticipant{id: id}
	for _, k := range kinds {
		p.tracks = append(p.tracks, newTrack(k))
	}
	return p
}

type fakeRoom struct {
	name         string
	participants []Participant
	events       chan Event

	mu          sync.Mutex
	published   []Track
	disconnects int
	once        sync.Once
}

func newRoom(participants ...Participant) *fakeRoom {
	return &fakeRoom{participants: participants, events: make(chan Event, 16)}
}

func (r *fakeRoom) Name() string                { return r.name }
func (r *fakeRoom) Participants() []Participant { return r.participants }
func (r *fakeRoom) Events() <-chan Event        { return r.events }

func (r *fakeRoom) Publish(t Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, t)
	return nil
}

func (r *fakeRoom) Disconnect() {
	r.mu.Lock()
	r.disconnects++
	r.mu.Unlock()
	r.once.Do(func() { close(r.events) })
}

func (r *fakeRoom) Disconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

func (r *fakeRoom) Published() []Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Track(nil), r.published...)
}

type fakeConnector struct {
	mu    sync.Mutex
	rooms []*fakeRoom
	err   error
	calls int
	token string
	opts  ConnectOptions
	// entered is signalled on each call, release holds the call until closed
	entered chan struct{}
	release chan struct{}
}

func newConnector(rooms ...*fakeRoom) *fakeConnector {
	return &fakeConnector{rooms: rooms}
}

func (c *fakeConnector) Connect(_ context.Context, token string, opts ConnectOptions) (Room, error) {
	c.mu.Lock()
	c.calls++
	c.token, c.opts = token, opts
	entered, release, err := c.entered, c.release, c.err
	var room *fakeRoom
	if err == nil && len(c.rooms) > 0 {
		room = c.rooms[0]
		if len(c.rooms) > 1 {
			c.rooms = c.rooms[1:]
		}
		room.name = opts.Name
	}
	c.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (c *fakeConnector) lastOptions() (string, ConnectOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.opts
}

// fakeTokens fails with errs in order, then succeeds
type fakeTokens struct {
	mu         sync.Mutex
	errs       []error
	always     error
	calls      int
	identities []string

	// entered and release hold Token open when set
	entered chan struct{}
	release chan struct{}
}

func (f *fakeTokens) Token(_ context.Context, identity, appointmentID string) (models.CallToken, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.identities = append(f.identities, identity)
	if f.always != nil {
		return models.CallToken{}, f.always
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return models.CallToken{}, err
	}
	return models.CallToken{Token: "tok-" + appointmentID, Identity: identity}, nil
}

func (f *fakeTokens) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type attachment struct {
	surface Surface
	track   Track
}

type fakeRenderer struct {
	mu       sync.Mutex
	next     int
	attached map[int]attachment
	clears   map[Surface]int
}

func newRenderer() *fakeRenderer {
	return &fakeRenderer{attached: map[int]attachment{}, clears: map[Surface]int{}}
}

func (r *fakeRenderer) Attach(s Surface, t Track) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.attached[r.next] = attachment{surface: s, track: t}
	return r.next, nil
}

func (r *fakeRenderer) Detach(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := h.(int); ok {
		delete(r.attached, id)
	}
}

func (r *fakeRenderer) Clear(s Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears[s]++
	for id, a := range r.attached {
		if a.surface == s {
			delete(r.attached, id)
		}
	}
}

func (r *fakeRenderer) on(s Surface) []Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Track
	for _, a := range r.attached {
		if a.surface == s {
			out = append(out, a.track)
		}
	}
	return out
}

func (r *fakeRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attached)
}

func (r *fakeRenderer) cleared(s Surface) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears[s]
}

type recordedState struct {
	state  State
	status string
}

type stateLog struct {
	mu      sync.Mutex
	entries []recordedState
}

func (l *stateLog) record(state State, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, recordedState{state: state, status: status})
}

func (l *stateLog) statuses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		out = append(out, e.status)
	}
	return out
}
