package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/databases"
	"github.com/smartcareconnect/smartcare-api/email"
	"github.com/smartcareconnect/smartcare-api/logging"
	"github.com/smartcareconnect/smartcare-api/models"
)

const (
	// ReminderSpec sends appointment reminders every morning
	ReminderSpec = "0 8 * * *"
	// PruneSpec drops idle rate limiter keys
	PruneSpec = "@every 1m"

	reminderJob = "appointment_reminders"
)

// Pruner forgets keys whose window has passed, see ratelimit.Memory
type Pruner interface {
	Prune() int
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron *cron.Cron

	AppointmentDB databases.AppointmentDatabase
	// Mailer is nil when email is not configured, reminders are then skipped
	Mailer email.Sender
	// Limiter is nil when rate limiting is not kept in process
	Limiter Pruner
	// Lock keeps the reminder job to one instance, nil runs it unlocked
	Lock Locker

	instanceID string
	now        func() time.Time
	log        *zap.SugaredLogger
}

// NewScheduler creates a new scheduler instance
func NewScheduler(appointments databases.AppointmentDatabase, mailer email.Sender, limiter Pruner, lock Locker) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:          cron.New(cron.WithLocation(time.UTC)),
		AppointmentDB: appointments,
		Mailer:        mailer,
		Limiter:       limiter,
		Lock:          lock,
		instanceID:    instanceID,
		now:           time.Now,
		log:           logging.Named("scheduler"),
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	if s.Mailer != nil {
		if _, err := s.cron.AddFunc(ReminderSpec, s.sendReminders); err != nil {
			s.log.Errorw("failed to register reminder job", "error", err)
		}
	} else {
		s.log.Warn("email is not configured, appointment reminders are disabled")
	}

	if s.Limiter != nil {
		if _, err := s.cron.AddFunc(PruneSpec, s.pruneLimiter); err != nil {
			s.log.Errorw("failed to register limiter prune job", "error", err)
		}
	}

	s.cron.Start()
	s.log.Infow("scheduler started", "instance", s.instanceID, "jobs", len(s.cron.Entries()))
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) pruneLimiter() {
	if n := s.Limiter.Prune(); n > 0 {
		s.log.Debugw("pruned idle rate limit keys", "count", n)
	}
}

// sendReminders emails every patient whose appointment is tomorrow and who
// has not been reminded yet
func (s *Scheduler) sendReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if s.Lock != nil {
		// Try to acquire distributed lock (10 minute TTL)
		acquired, err := s.Lock.TryLock(ctx, reminderJob, s.instanceID, 10*time.Minute)
		if err != nil {
			s.log.Errorw("failed to acquire lock for reminder job", "error", err)
			return
		}
		if !acquired {
			s.log.Debug("reminder job already running on another instance, skipping")
			return
		}
		defer func() {
			if err := s.Lock.Unlock(context.Background(), reminderJob, s.instanceID); err != nil {
				s.log.Warnw("failed to release reminder lock", "error", err)
			}
		}()
	}

	sent, failed := s.remind(ctx)
	s.log.Infow("appointment reminders complete", "sent", sent, "failed", failed)
}

func (s *Scheduler) remind(ctx context.Context) (sent, failed int) {
	tomorrow := s.now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	appts, err := s.AppointmentDB.Find(ctx, bson.M{
		"appointment_date": tomorrow,
		"reminderSent":     bson.M{"$ne": true},
	})
	if err != nil {
		s.log.Errorw("failed to find appointments needing reminder", "error", err)
		return 0, 0
	}

	for _, a := range appts {
		if err := s.remindOne(ctx, a); err != nil {
			s.log.Warnw("failed to send appointment reminder", "appointmentId", a.ID, "error", err)
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

func (s *Scheduler) remindOne(ctx context.Context, a models.Appointment) error {
	if a.Email == "" {
		return fmt.Errorf("appointment has no patient email")
	}
	if err := email.SendReminder(ctx, s.Mailer, a); err != nil {
		return err
	}
	return s.AppointmentDB.UpdateOne(ctx,
		bson.M{"_id": a.ID},
		bson.M{"$set": bson.M{"reminderSent": true}})
}
