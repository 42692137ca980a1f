package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartcareconnect/smartcare-api/api/handlers"
	"github.com/smartcareconnect/smartcare-api/email"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		out = append(out, m.ToEmail)
	}
	sort.Strings(out)
	return out
}

const emailBody = `{
	"doctorEmail": "rai@example.com",
	"patientEmail": "asha@example.com",
	"patientDetails": {"firstName": "Asha", "lastName": "Gurung", "selectedDoctor": "Rai", "appointmentDate": "2024-05-02", "appointmentTime": "10:30"}
}`

func TestEmail_SendEmailHandler(t *testing.T) {
	sender := &fakeSender{}
	e := handlers.Email{Sender: sender}

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.SendEmailHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/send-email", strings.NewReader(emailBody)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Emails sent successfully!"}`, rr.Body.String())
	assert.Equal(t, []string{"asha@example.com", "rai@example.com"}, sender.recipients())
}

func TestEmail_SendEmailHandlerMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no doctor", body: `{"patientEmail":"asha@example.com","patientDetails":{}}`},
		{name: "no patient", body: `{"doctorEmail":"rai@example.com","patientDetails":{}}`},
		{name: "no details", body: `{"doctorEmail":"rai@example.com","patientEmail":"asha@example.com"}`},
		{name: "not json", body: `doctor`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			e := handlers.Email{Sender: sender}

			rr := httptest.NewRecorder()
			http.HandlerFunc(e.SendEmailHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/send-email", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.JSONEq(t, `{"error":"Doctor's email, patient's email, and patient details are required."}`, rr.Body.String())
			assert.Empty(t, sender.recipients())
		})
	}
}

func TestEmail_SendEmailHandlerProviderFailure(t *testing.T) {
	e := handlers.Email{Sender: &fakeSender{err: errors.New("sendgrid error: status 401")}}

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.SendEmailHandler).ServeHTTP(rr, httptest.NewRequest("POST", "/api/send-email", strings.NewReader(emailBody)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to send email."}`, rr.Body.String())
}
