package call

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/logging"
	"github.com/smartcareconnect/smartcare-api/models"
)

var errNotConfigured = errors.New("call session needs a token source and a connector")

type remoteKey struct {
	identity string
	kind     Kind
}

type remoteEntry struct {
	track  Track
	handle Handle
}

// Session is one call between the current user and the other party of an
// appointment. A Session may be opened again after it closes or fails.
type Session struct {
	cfg Config
	log *zap.SugaredLogger

	mu            sync.Mutex
	gen           uint64
	state         State
	status        string
	err           error
	current       User
	recipient     User
	appointmentID string
	room          Room
	audio         Track
	video         Track
	local         Handle
	remote        map[remoteKey]remoteEntry
	cancel        context.CancelFunc
	retry         *time.Timer
	retries       int
}

// NewSession returns an idle session
func NewSession(cfg Config) *Session {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Renderer == nil {
		cfg.Renderer = nopRenderer{}
	}
	if cfg.Bandwidth == (BandwidthProfile{}) {
		cfg.Bandwidth = DefaultBandwidth
	}
	return &Session{
		cfg:    cfg,
		log:    logging.OrGlobal(cfg.Logger),
		remote: map[remoteKey]remoteEntry{},
	}
}

// Open tears down any previous call and joins the appointment's room. It
// returns once connected or failed. After a failure another attempt is made
// every RetryDelay until connected, closed or out of retries.
func (s *Session) Open(ctx context.Context, current, recipient User, appointmentID string) error {
	if current.ID == "" || appointmentID == "" {
		return ErrInvalidCall
	}
	if s.cfg.Tokens == nil || s.cfg.Connector == nil {
		return errNotConfigured
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	td := s.collectLocked()
	s.current, s.recipient, s.appointmentID = current, recipient, appointmentID
	s.retries = 0
	s.err = nil
	s.mu.Unlock()
	td.run(s.cfg.Renderer)

	return s.attempt(ctx, gen)
}

// Close leaves the call and releases every device, handle and surface.
// Pending attempts and retries are abandoned. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.gen++
	active := s.state != Idle && s.state != Disconnected
	td := s.collectLocked()
	if active {
		s.setLocked(Disconnected, StatusDisconnected)
	}
	s.mu.Unlock()
	td.run(s.cfg.Renderer)

	if active {
		s.log.Infow("call closed", "appointmentId", s.appointment())
		s.notify(Disconnected, StatusDisconnected)
	}
}

// ToggleMute mutes or unmutes the microphone, acquiring and publishing one
// if the call started without it
func (s *Session) ToggleMute(ctx context.Context) error {
	return s.toggle(ctx, KindAudio)
}

// ToggleVideo turns the camera off or on, acquiring and publishing one if
// the call started without it
func (s *Session) ToggleVideo(ctx context.Context) error {
	return s.toggle(ctx, KindVideo)
}

// State is the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status is the current status line
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err is the error behind the last failure or disconnect, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Muted reports whether no enabled microphone track is live
func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio == nil || !s.audio.Enabled()
}

// VideoOff reports whether no enabled camera track is live
func (s *Session) VideoOff() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video == nil || !s.video.Enabled()
}

// RemoteTracks lists the remote tracks currently rendered
func (s *Session) RemoteTracks() []RemoteTrack {
	s.mu.Lock()
	out := make([]RemoteTrack, 0, len(s.remote))
	for k := range s.remote {
		out = append(out, RemoteTrack{Identity: k.identity, Kind: k.kind})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Identity != out[j].Identity {
			return out[i].Identity < out[j].Identity
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func (s *Session) attempt(parent context.Context, gen uint64) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.cancel = cancel
	current, appointmentID := s.current, s.appointmentID
	s.setLocked(RequestingToken, StatusFetchingToken)
	s.mu.Unlock()
	s.notify(RequestingToken, StatusFetchingToken)

	tok, err := s.cfg.Tokens.Token(ctx, current.ID, appointmentID)
	if err != nil {
		return s.fail(gen, fmt.Errorf("fetch call token: %w", err))
	}

	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return ErrSessionClosed
	}

	video := s.acquire(ctx, KindVideo)
	audio := s.acquire(ctx, KindAudio)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		stopTracks(video, audio)
		return ErrSessionClosed
	}
	s.video, s.audio = video, audio
	s.attachLocalLocked()
	s.setLocked(Connecting, StatusConnecting)
	s.mu.Unlock()
	s.notify(Connecting, StatusConnecting)

	room, err := s.cfg.Connector.Connect(ctx, tok.Token, ConnectOptions{
		Name:            models.RoomName(appointmentID),
		Tracks:          liveTracks(audio, video),
		DominantSpeaker: true,
		NetworkQuality:  true,
		Bandwidth:       s.cfg.Bandwidth,
	})
	if err != nil {
		return s.fail(gen, fmt.Errorf("connect to room: %w", err))
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		room.Disconnect()
		return ErrSessionClosed
	}
	s.room = room
	s.retries = 0
	s.err = nil
	for _, p := range room.Participants() {
		s.attachParticipantLocked(p)
	}
	s.setLocked(Connected, StatusConnected)
	s.mu.Unlock()

	s.log.Infow("call connected", "appointmentId", appointmentID, "room", room.Name(), "identity", current.ID)
	s.notify(Connected, StatusConnected)

	go s.pump(gen, room)
	return nil
}

// fail releases the attempt's resources, records err and schedules a retry
func (s *Session) fail(gen uint64, err error) error {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	td := s.collectLocked()
	s.err = err
	s.setLocked(Failed, StatusFailed)
	delay, retrying := s.scheduleRetryLocked(gen, err)
	appointmentID := s.appointmentID
	s.mu.Unlock()
	td.run(s.cfg.Renderer)

	if retrying {
		s.log.Warnw("call failed, retrying", "appointmentId", appointmentID, "retryIn", delay, "error", err)
	} else {
		s.log.Errorw("call failed", "appointmentId", appointmentID, "error", err)
	}
	s.notify(Failed, StatusFailed)
	return err
}

func (s *Session) scheduleRetryLocked(gen uint64, err error) (time.Duration, bool) {
	if s.cfg.MaxRetries > 0 && s.retries >= s.cfg.MaxRetries {
		return 0, false
	}
	delay := s.cfg.RetryDelay
	var limited *RateLimitedError
	if errors.As(err, &limited) && limited.RetryAfter > delay {
		delay = limited.RetryAfter
	}
	s.retries++
	s.retry = time.AfterFunc(delay, func() {
		_ = s.attempt(context.Background(), gen)
	})
	return delay, true
}

func (s *Session) acquire(ctx context.Context, kind Kind) Track {
	if s.cfg.Media == nil {
		return nil
	}
	t, err := s.cfg.Media.Acquire(ctx, kind)
	if err != nil {
		s.log.Warnw("local media unavailable, joining without it", "kind", kind, "error", err)
		return nil
	}
	return t
}

func (s *Session) pump(gen uint64, room Room) {
	for ev := range room.Events() {
		if !s.handle(gen, ev) {
			return
		}
	}
	s.disconnected(gen, nil)
}

// handle applies one room event, false once the pump should stop
func (s *Session) handle(gen uint64, ev Event) bool {
	if ev.Type == RoomDisconnected {
		s.disconnected(gen, ev.Err)
		return false
	}

	s.mu.Lock()
	if gen != s.gen || s.room == nil {
		s.mu.Unlock()
		return false
	}
	var status string
	switch ev.Type {
	case ParticipantConnected:
		if ev.Participant != nil {
			s.attachParticipantLocked(ev.Participant)
			status = ev.Participant.Identity() + " joined"
		}
	case ParticipantDisconnected:
		if ev.Participant != nil {
			s.detachParticipantLocked(ev.Participant.Identity())
			status = ev.Participant.Identity() + " left"
		}
	case TrackSubscribed:
		if ev.Participant != nil && ev.Track != nil {
			s.attachRemoteLocked(ev.Participant.Identity(), ev.Track)
		}
	case TrackUnsubscribed:
		if ev.Participant != nil && ev.Track != nil {
			s.detachRemoteLocked(remoteKey{identity: ev.Participant.Identity(), kind: ev.Track.Kind()})
		}
	}
	state := s.state
	if status != "" {
		s.status = status
	}
	s.mu.Unlock()

	if status != "" {
		s.notify(state, status)
	}
	return true
}

func (s *Session) disconnected(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.room == nil {
		s.mu.Unlock()
		return
	}
	td := s.collectLocked()
	if err != nil {
		s.err = err
	}
	s.setLocked(Disconnected, StatusDisconnected)
	appointmentID := s.appointmentID
	s.mu.Unlock()
	td.run(s.cfg.Renderer)

	s.log.Infow("call disconnected", "appointmentId", appointmentID, "error", err)
	s.notify(Disconnected, StatusDisconnected)
}

func (s *Session) toggle(ctx context.Context, kind Kind) error {
	s.mu.Lock()
	if t := s.trackLocked(kind); t != nil {
		on := !t.Enabled()
		t.Enable(on)
		var off Handle
		if kind == KindVideo {
			if on {
				s.attachLocalLocked()
			} else {
				off, s.local = s.local, nil
			}
		}
		s.mu.Unlock()
		if off != nil {
			s.cfg.Renderer.Detach(off)
			s.cfg.Renderer.Clear(LocalVideo)
		}
		return nil
	}
	room, gen := s.room, s.gen
	s.mu.Unlock()
	if room == nil {
		return ErrNotConnected
	}

	failure := StatusMuteFailed
	if kind == KindVideo {
		failure = StatusCameraFailed
	}
	if s.cfg.Media == nil {
		return s.toggleFailed(gen, failure, errors.New("no local media"))
	}
	t, err := s.cfg.Media.Acquire(ctx, kind)
	if err != nil {
		return s.toggleFailed(gen, failure, err)
	}
	if err := room.Publish(t); err != nil {
		t.Stop()
		return s.toggleFailed(gen, failure, err)
	}

	s.mu.Lock()
	if gen != s.gen || s.room == nil {
		s.mu.Unlock()
		t.Stop()
		return ErrSessionClosed
	}
	if s.trackLocked(kind) != nil {
		// a concurrent toggle got there first
		s.mu.Unlock()
		t.Stop()
		return nil
	}
	if kind == KindVideo {
		s.video = t
		s.attachLocalLocked()
	} else {
		s.audio = t
	}
	s.mu.Unlock()
	return nil
}

// toggleFailed reports a toggle failure on the status line. The call stays up.
func (s *Session) toggleFailed(gen uint64, status string, err error) error {
	s.mu.Lock()
	current := gen == s.gen
	state := s.state
	if current {
		s.status = status
	}
	s.mu.Unlock()

	s.log.Warnw(status, "error", err)
	if current {
		s.notify(state, status)
	}
	return fmt.Errorf("%s: %w", status, err)
}

func (s *Session) trackLocked(kind Kind) Track {
	if kind == KindVideo {
		return s.video
	}
	return s.audio
}

func (s *Session) attachLocalLocked() {
	if s.video == nil || s.local != nil {
		return
	}
	h, err := s.cfg.Renderer.Attach(LocalVideo, s.video)
	if err != nil {
		s.log.Warnw("failed to attach local video", "error", err)
		return
	}
	s.local = h
}

func (s *Session) attachParticipantLocked(p Participant) {
	for _, t := range p.Tracks() {
		s.attachRemoteLocked(p.Identity(), t)
	}
}

// attachRemoteLocked renders a remote track. Only one remote video is shown,
// the latest one replaces whatever was there.
func (s *Session) attachRemoteLocked(identity string, t Track) {
	if t == nil {
		return
	}
	key := remoteKey{identity: identity, kind: t.Kind()}
	if e, ok := s.remote[key]; ok {
		s.cfg.Renderer.Detach(e.handle)
		delete(s.remote, key)
	}

	surface := surfaceFor(t.Kind())
	if surface == RemoteVideo {
		for k, e := range s.remote {
			if k.kind == KindVideo {
				s.cfg.Renderer.Detach(e.handle)
				delete(s.remote, k)
			}
		}
		s.cfg.Renderer.Clear(RemoteVideo)
	}

	h, err := s.cfg.Renderer.Attach(surface, t)
	if err != nil {
		s.log.Warnw("failed to attach remote track", "identity", identity, "kind", t.Kind(), "error", err)
		return
	}
	s.remote[key] = remoteEntry{track: t, handle: h}
}

func (s *Session) detachRemoteLocked(key remoteKey) {
	e, ok := s.remote[key]
	if !ok {
		return
	}
	s.cfg.Renderer.Detach(e.handle)
	delete(s.remote, key)
	for k := range s.remote {
		if k.kind == key.kind {
			return
		}
	}
	s.cfg.Renderer.Clear(surfaceFor(key.kind))
}

func (s *Session) detachParticipantLocked(identity string) {
	for _, kind := range []Kind{KindAudio, KindVideo} {
		s.detachRemoteLocked(remoteKey{identity: identity, kind: kind})
	}
}

// collectLocked takes everything the current call holds out of the session
// so it can be released without the lock
func (s *Session) collectLocked() teardown {
	td := teardown{
		room:   s.room,
		cancel: s.cancel,
		retry:  s.retry,
		tracks: liveTracks(s.audio, s.video),
		clear:  s.state != Idle && s.state != Disconnected,
	}
	if s.local != nil {
		td.handles = append(td.handles, s.local)
	}
	for _, e := range s.remote {
		td.handles = append(td.handles, e.handle)
	}
	s.room, s.cancel, s.retry = nil, nil, nil
	s.audio, s.video, s.local = nil, nil, nil
	s.remote = map[remoteKey]remoteEntry{}
	return td
}

func (s *Session) setLocked(state State, status string) {
	s.state = state
	s.status = status
}

func (s *Session) notify(state State, status string) {
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(state, status)
	}
}

func (s *Session) appointment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointmentID
}

// teardown is what one call held at the moment it ended
type teardown struct {
	room    Room
	cancel  context.CancelFunc
	retry   *time.Timer
	tracks  []Track
	handles []Handle
	clear   bool
}

func (td teardown) run(r Renderer) {
	if td.retry != nil {
		td.retry.Stop()
	}
	if td.cancel != nil {
		td.cancel()
	}
	for _, h := range td.handles {
		r.Detach(h)
	}
	for _, t := range td.tracks {
		t.Stop()
	}
	if td.room != nil {
		td.room.Disconnect()
	}
	if td.clear {
		r.Clear(LocalVideo)
		r.Clear(RemoteVideo)
		r.Clear(RemoteAudio)
	}
}

func surfaceFor(kind Kind) Surface {
	if kind == KindVideo {
		return RemoteVideo
	}
	return RemoteAudio
}

func liveTracks(tracks ...Track) []Track {
	var out []Track
	for _, t := range tracks {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

func stopTracks(tracks ...Track) {
	for _, t := range liveTracks(tracks...) {
		t.Stop()
	}
}

type nopRenderer struct{}

func (nopRenderer) Attach(Surface, Track) (Handle, error) { return nil, nil }
func (nopRenderer) Detach(Handle)                         {}
func (nopRenderer) Clear(Surface)                         {}
