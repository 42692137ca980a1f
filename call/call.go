// Package call manages the lifecycle of one video call between the two
// parties of an appointment: token, local media, room connection, remote
// participants and teardown.
package call

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/models"
)

var (
	// ErrSessionClosed is returned by work that was overtaken by Close or a newer Open
	ErrSessionClosed = errors.New("call session closed")
	// ErrNotConnected is returned by a toggle that needs a room when none is connected
	ErrNotConnected = errors.New("call is not connected")
	// ErrInvalidCall is returned by Open without a caller id or an appointment id
	ErrInvalidCall = errors.New("user id and appointment id are required")
)

// DefaultRetryDelay is the pause before a failed call is attempted again
const DefaultRetryDelay = 5 * time.Second

// State is where a Session is in its lifecycle
type State int

const (
	// Idle has never been opened
	Idle State = iota
	// RequestingToken is waiting on the token endpoint
	RequestingToken
	// Connecting is joining the room
	Connecting
	// Connected is in the room
	Connected
	// Disconnected has left the room or was closed
	Disconnected
	// Failed could not get a token or connect
	Failed
)

func (s State) String() string {
	switch s {
	case RequestingToken:
		return "requesting_token"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Status lines shown to the user
const (
	StatusFetchingToken = "Fetching token..."
	StatusConnecting    = "Connecting..."
	StatusConnected     = "Connected"
	StatusFailed        = "Connection failed"
	StatusDisconnected  = "Disconnected"
	StatusMuteFailed    = "Failed to unmute microphone"
	StatusCameraFailed  = "Failed to enable camera"
)

// Kind is the media type of a track
type Kind string

const (
	// KindAudio is a microphone track
	KindAudio Kind = "audio"
	// KindVideo is a camera track
	KindVideo Kind = "video"
)

// Track is a media track, local or remote
type Track interface {
	Kind() Kind
	Enable(on bool)
	Enabled() bool
	// Stop releases the underlying device. Remote tracks may ignore it.
	Stop()
}

// LocalMedia acquires camera and microphone tracks
type LocalMedia interface {
	Acquire(ctx context.Context, kind Kind) (Track, error)
}

// BandwidthProfile caps what the room sends to this participant
type BandwidthProfile struct {
	Mode                   string
	MaxSubscriptionBitrate int
	DominantSpeakerHigh    bool
}

// DefaultBandwidth favours the active speaker and caps the total downstream
var DefaultBandwidth = BandwidthProfile{
	Mode:                   "collaboration",
	MaxSubscriptionBitrate: 2500000,
	DominantSpeakerHigh:    true,
}

// ConnectOptions describe how to join a room
type ConnectOptions struct {
	Name            string
	Tracks          []Track
	DominantSpeaker bool
	NetworkQuality  bool
	Bandwidth       BandwidthProfile
}

// Connector joins rooms with an access token
type Connector interface {
	Connect(ctx context.Context, token string, opts ConnectOptions) (Room, error)
}

// Participant is a remote member of a room
type Participant interface {
	Identity() string
	Tracks() []Track
}

// Room is a joined call room. Events is closed once the room is gone and
// Disconnect may be called more than once.
type Room interface {
	Name() string
	Publish(t Track) error
	Participants() []Participant
	Events() <-chan Event
	Disconnect()
}

// EventType tells what happened in a room
type EventType int

const (
	ParticipantConnected EventType = iota
	ParticipantDisconnected
	TrackSubscribed
	TrackUnsubscribed
	RoomDisconnected
)

// Event is one room notification. Track is set for track events, Err may
// be set for RoomDisconnected.
type Event struct {
	Type        EventType
	Participant Participant
	Track       Track
	Err         error
}

// Surface is a place a track can be rendered
type Surface int

const (
	LocalVideo Surface = iota
	RemoteVideo
	RemoteAudio
)

// Handle identifies one attachment made by a Renderer
type Handle interface{}

// Renderer attaches tracks to surfaces. Implementations must not call back
// into the Session.
type Renderer interface {
	Attach(s Surface, t Track) (Handle, error)
	Detach(h Handle)
	Clear(s Surface)
}

// TokenSource fetches call access tokens
type TokenSource interface {
	Token(ctx context.Context, identity, appointmentID string) (models.CallToken, error)
}

// User is one side of the call
type User struct {
	ID   string
	Name string
}

// RemoteTrack identifies a remote track currently rendered
type RemoteTrack struct {
	Identity string
	Kind     Kind
}

// Config wires a Session to its collaborators
type Config struct {
	Tokens    TokenSource
	Media     LocalMedia
	Connector Connector
	Renderer  Renderer

	// RetryDelay defaults to DefaultRetryDelay
	RetryDelay time.Duration
	// MaxRetries caps automatic retries after a failure, 0 is unlimited
	MaxRetries int
	Bandwidth  BandwidthProfile
	Logger     *zap.SugaredLogger

	// OnStateChange is called after every state or status change, from any
	// goroutine, never with the session locked
	OnStateChange func(State, string)
}
