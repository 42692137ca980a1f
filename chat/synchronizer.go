package chat

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/databases"
	"github.com/smartcareconnect/smartcare-api/logging"
	"github.com/smartcareconnect/smartcare-api/models"
	"github.com/smartcareconnect/smartcare-api/storage"
)

const (
	// DefaultResubscribeDelay is how long a broken subscription waits before watching again
	DefaultResubscribeDelay = 2 * time.Second
	// DefaultVoiceDurationTimeout bounds how long a send waits for a clip's duration
	DefaultVoiceDurationTimeout = time.Second
)

// Synchronizer reads, watches and writes the messages of appointments
type Synchronizer struct {
	db    databases.MessageDatabase
	blobs storage.Uploader

	// Prober measures voice clips, WAVDurationProber by default
	Prober DurationProber
	// ResubscribeDelay is the pause between a failed watch and the next attempt
	ResubscribeDelay time.Duration
	// VoiceDurationTimeout bounds the Prober, after which the duration is 0
	VoiceDurationTimeout time.Duration
	// Logger defaults to the global logger
	Logger *zap.SugaredLogger

	now func() time.Time
}

// NewSynchronizer returns a synchronizer over the message store and blob store
func NewSynchronizer(db databases.MessageDatabase, blobs storage.Uploader) *Synchronizer {
	return &Synchronizer{
		db:                   db,
		blobs:                blobs,
		Prober:               WAVDurationProber{},
		ResubscribeDelay:     DefaultResubscribeDelay,
		VoiceDurationTimeout: DefaultVoiceDurationTimeout,
		now:                  time.Now,
	}
}

func (s *Synchronizer) log() *zap.SugaredLogger {
	return logging.OrGlobal(s.Logger)
}

// Snapshot fetches every message of an appointment in display order
func (s *Synchronizer) Snapshot(ctx context.Context, appointmentID string) ([]models.Message, error) {
	if appointmentID == "" {
		return nil, ErrMissingAppointment
	}
	msgs, err := s.db.Find(ctx, bson.M{"appointmentId": appointmentID})
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		return []models.Message{}, nil
	}
	return Order(msgs), nil
}

// MarkRead flags one message as read. Messages already read are left alone.
func (s *Synchronizer) MarkRead(ctx context.Context, m models.Message) error {
	return s.db.UpdateOne(ctx,
		bson.M{"_id": m.ID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
}
