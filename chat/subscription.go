package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartcareconnect/smartcare-api/models"
)

var errStreamEnded = errors.New("message change stream ended")

// Snapshot is the full, ordered conversation at one point in time
type Snapshot struct {
	AppointmentID string           `json:"appointmentId"`
	Seq           uint64           `json:"seq"`
	Messages      []models.Message `json:"messages"`
}

// Listener receives a subscription's output. Callbacks are never concurrent
// and must not call Close on their own subscription.
type Listener struct {
	OnSnapshot func(Snapshot)
	OnError    func(error)
}

// Subscription streams snapshots of one appointment until closed
type Subscription struct {
	owner         *Synchronizer
	appointmentID string
	viewerID      string
	listener      Listener

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once

	// emitMu serializes callbacks and guards emitted
	emitMu  sync.Mutex
	emitted uint64

	mu       sync.Mutex
	seq      uint64
	last     *Snapshot
	inFlight map[primitive.ObjectID]bool
	marked   map[primitive.ObjectID]bool
}

// Subscribe watches an appointment's messages. The listener gets a snapshot
// right away and again after every insert or update. Unread messages
// addressed to viewerID are marked read as they are delivered.
func (s *Synchronizer) Subscribe(ctx context.Context, appointmentID, viewerID string, l Listener) (*Subscription, error) {
	if appointmentID == "" {
		return nil, ErrMissingAppointment
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		owner:         s,
		appointmentID: appointmentID,
		viewerID:      viewerID,
		listener:      l,
		ctx:           subCtx,
		cancel:        cancel,
		done:          make(chan struct{}),
		inFlight:      map[primitive.ObjectID]bool{},
		marked:        map[primitive.ObjectID]bool{},
	}
	go sub.run()
	return sub, nil
}

// AppointmentID is the appointment this subscription watches
func (sub *Subscription) AppointmentID() string {
	return sub.appointmentID
}

// Last returns the most recently emitted snapshot
func (sub *Subscription) Last() (Snapshot, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.last == nil {
		return Snapshot{}, false
	}
	return *sub.last, true
}

// Close stops the subscription. When it returns no callback is running or
// will run, and no read flag write is in flight. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.closeOnce.Do(func() {
		sub.cancel()
		<-sub.done
		sub.wg.Wait()
	})
}

func (sub *Subscription) run() {
	defer close(sub.done)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "fullDocument.appointmentId", Value: sub.appointmentID}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	for {
		stream, err := sub.owner.db.Watch(sub.ctx, pipeline, opts)
		if err != nil {
			if sub.ctx.Err() != nil {
				return
			}
			sub.fail(err)
			// without a stream, poll so messages still render
			sub.refresh()
			if !sub.wait() {
				return
			}
			continue
		}

		sub.refresh()
		for stream.Next(sub.ctx) {
			sub.refresh()
		}
		err = stream.Err()
		_ = stream.Close(context.Background())

		if sub.ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errStreamEnded
		}
		sub.fail(err)
		if !sub.wait() {
			return
		}
	}
}

// wait sleeps for the resubscribe delay, false when closed meanwhile
func (sub *Subscription) wait() bool {
	t := time.NewTimer(sub.owner.ResubscribeDelay)
	defer t.Stop()
	select {
	case <-sub.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// refresh fetches a snapshot in the background. Results are emitted in
// sequence order, a result overtaken by a newer one is dropped.
func (sub *Subscription) refresh() {
	sub.mu.Lock()
	sub.seq++
	seq := sub.seq
	sub.mu.Unlock()

	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		msgs, err := sub.owner.Snapshot(sub.ctx, sub.appointmentID)

		sub.emitMu.Lock()
		defer sub.emitMu.Unlock()
		if sub.ctx.Err() != nil || seq <= sub.emitted {
			return
		}
		if err != nil {
			sub.owner.log().Warnw("failed to refresh messages", "appointmentId", sub.appointmentID, "seq", seq, "error", err)
			if sub.listener.OnError != nil {
				sub.listener.OnError(err)
			}
			return
		}

		sub.emitted = seq
		snap := Snapshot{AppointmentID: sub.appointmentID, Seq: seq, Messages: msgs}
		sub.mu.Lock()
		sub.last = &snap
		sub.mu.Unlock()

		if sub.listener.OnSnapshot != nil {
			sub.listener.OnSnapshot(snap)
		}
		sub.markRead(msgs)
	}()
}

func (sub *Subscription) fail(err error) {
	sub.owner.log().Warnw("message subscription failed", "appointmentId", sub.appointmentID, "error", err)

	sub.emitMu.Lock()
	defer sub.emitMu.Unlock()
	if sub.ctx.Err() != nil {
		return
	}
	if sub.listener.OnError != nil {
		sub.listener.OnError(err)
	}
}

// markRead fires one update per unread message addressed to the viewer,
// skipping any already marked or in flight
func (sub *Subscription) markRead(msgs []models.Message) {
	if sub.viewerID == "" {
		return
	}
	for _, m := range msgs {
		if m.Read || m.RecipientID != sub.viewerID || m.ID.IsZero() {
			continue
		}

		sub.mu.Lock()
		if sub.inFlight[m.ID] || sub.marked[m.ID] {
			sub.mu.Unlock()
			continue
		}
		sub.inFlight[m.ID] = true
		sub.mu.Unlock()

		sub.wg.Add(1)
		go func(m models.Message) {
			defer sub.wg.Done()
			err := sub.owner.MarkRead(sub.ctx, m)

			sub.mu.Lock()
			delete(sub.inFlight, m.ID)
			if err == nil {
				sub.marked[m.ID] = true
			}
			sub.mu.Unlock()

			if err != nil && sub.ctx.Err() == nil {
				sub.owner.log().Warnw("failed to mark message read", "messageId", m.ID.Hex(), "error", err)
			}
		}(m)
	}
}

// View holds the subscription of the conversation currently open
type View struct {
	owner    *Synchronizer
	viewerID string
	listener Listener

	mu  sync.Mutex
	sub *Subscription
}

// NewView returns a view that delivers to l
func (s *Synchronizer) NewView(viewerID string, l Listener) *View {
	return &View{owner: s, viewerID: viewerID, listener: l}
}

// SetAppointment closes the current subscription, then opens one for appointmentID
func (v *View) SetAppointment(ctx context.Context, appointmentID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sub != nil {
		v.sub.Close()
		v.sub = nil
	}
	sub, err := v.owner.Subscribe(ctx, appointmentID, v.viewerID, v.listener)
	if err != nil {
		return err
	}
	v.sub = sub
	return nil
}

// AppointmentID is the open appointment, empty when none is open
func (v *View) AppointmentID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sub == nil {
		return ""
	}
	return v.sub.AppointmentID()
}

// Close closes the current subscription
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sub != nil {
		v.sub.Close()
		v.sub = nil
	}
}
