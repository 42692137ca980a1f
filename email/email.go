// Package email sends transactional mail through SendGrid.
package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smartcareconnect/smartcare-api/models"
	templates "github.com/smartcareconnect/smartcare-api/templates/html"
)

// ErrNotConfigured is returned when no SendGrid api key is set
var ErrNotConfigured = errors.New("email sender is not configured")

// Message is a single outgoing email
type Message struct {
	ToName    string
	ToEmail   string
	Subject   string
	HTML      string
	PlainText string
}

// Sender delivers a message
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SendGrid delivers messages through the SendGrid v3 mail api
type SendGrid struct {
	apiKey string
	host   string // empty means the SendGrid api
	from   *mail.Email
}

// NewSendGrid returns a sender for apiKey, or ErrNotConfigured when it is empty
func NewSendGrid(apiKey, fromName, fromAddress string) (*SendGrid, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	return &SendGrid{
		apiKey: apiKey,
		from:   mail.NewEmail(fromName, fromAddress),
	}, nil
}

// a client holds the request body, so each send gets its own
func (s *SendGrid) newClient() *sendgrid.Client {
	if s.host == "" {
		return sendgrid.NewSendClient(s.apiKey)
	}
	req := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	req.Method = "POST"
	return &sendgrid.Client{Request: req}
}

// Send delivers m. A SendGrid status of 400 or above is an error.
func (s *SendGrid) Send(ctx context.Context, m Message) error {
	to := mail.NewEmail(m.ToName, m.ToEmail)
	message := mail.NewSingleEmail(s.from, m.Subject, to, m.PlainText, m.HTML)
	response, err := s.newClient().SendWithContext(ctx, message)
	if err != nil {
		zap.S().Errorw("failed to send email", "error", err, "to", m.ToEmail)
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", m.ToEmail)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Infow("email sent successfully", "to", m.ToEmail, "subject", m.Subject)
	return nil
}

// NotifyAppointment emails the doctor about a booking and confirms it to the
// patient. Both are attempted, the first failure is returned.
func NotifyAppointment(ctx context.Context, s Sender, doctorEmail, patientEmail string, d models.PatientDetails) error {
	var g errgroup.Group
	g.Go(func() error {
		return s.Send(ctx, Message{
			ToName:    "Dr. " + d.SelectedDoctor,
			ToEmail:   doctorEmail,
			Subject:   templates.DoctorAppointmentSubject(d),
			HTML:      templates.RenderDoctorAppointmentEmail(d),
			PlainText: fmt.Sprintf("New appointment request from %s %s on %s at %s.", d.FirstName, d.LastName, d.AppointmentDate, d.AppointmentTime),
		})
	})
	g.Go(func() error {
		return s.Send(ctx, Message{
			ToName:    d.FirstName + " " + d.LastName,
			ToEmail:   patientEmail,
			Subject:   templates.PatientAppointmentSubject(d),
			HTML:      templates.RenderPatientAppointmentEmail(d),
			PlainText: fmt.Sprintf("Your appointment with Dr. %s is booked for %s at %s.", d.SelectedDoctor, d.AppointmentDate, d.AppointmentTime),
		})
	})
	return g.Wait()
}

// SendReminder emails the patient of an upcoming appointment
func SendReminder(ctx context.Context, s Sender, a models.Appointment) error {
	return s.Send(ctx, Message{
		ToName:    a.FirstName + " " + a.LastName,
		ToEmail:   a.Email,
		Subject:   templates.ReminderSubject(a),
		HTML:      templates.RenderAppointmentReminderEmail(a),
		PlainText: fmt.Sprintf("Reminder: your appointment with Dr. %s is on %s at %s.", a.SelectedDoctor, a.AppointmentDate, a.AppointmentTime),
	})
}

// SendWelcome greets a newly registered account
func SendWelcome(ctx context.Context, s Sender, name, address string) error {
	subject := "Welcome to SmartCare Connect"
	body := fmt.Sprintf("Hi %s,\nYour SmartCare Connect account is ready. You can now book appointments, chat with your doctor and join video consultations.", name)
	return s.Send(ctx, Message{
		ToName:    name,
		ToEmail:   address,
		Subject:   subject,
		HTML:      templates.RenderGenericEmail(subject, body),
		PlainText: body,
	})
}
