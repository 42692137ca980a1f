package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartcareconnect/smartcare-api/models"
)

func TestRenderDoctorAppointmentEmail(t *testing.T) {
	d := models.PatientDetails{
		FirstName:       "Asha",
		LastName:        "<b>Rai</b>",
		SelectedDoctor:  "Sharma",
		SelectedDisease: "Migraine",
		AppointmentDate: "2026-10-18",
		AppointmentTime: "10:30",
	}
	out := RenderDoctorAppointmentEmail(d)

	assert.Contains(t, out, "Dear Dr. Sharma,")
	assert.Contains(t, out, "&lt;b&gt;Rai&lt;/b&gt;")
	assert.NotContains(t, out, "<b>Rai</b>")
	assert.Contains(t, out, noMessage)
}

func TestRenderPatientAppointmentEmail(t *testing.T) {
	d := models.PatientDetails{FirstName: "Asha", LastName: "Rai", SelectedDoctor: "Sharma", Message: "bring reports"}
	out := RenderPatientAppointmentEmail(d)

	assert.Contains(t, out, "Dear Asha Rai,")
	assert.Contains(t, out, "Dr. Sharma")
	assert.Contains(t, out, "bring reports")
	assert.NotContains(t, out, noMessage)
}

func TestSubjects(t *testing.T) {
	d := models.PatientDetails{FirstName: "Asha", LastName: "Rai", SelectedDoctor: "Sharma", AppointmentDate: "2026-10-18"}
	assert.Equal(t, "New Appointment: Asha Rai - 2026-10-18", DoctorAppointmentSubject(d))
	assert.Equal(t, "Appointment Confirmation with Dr. Sharma - 2026-10-18", PatientAppointmentSubject(d))
}

func TestRenderGenericEmail(t *testing.T) {
	out := RenderGenericEmail("Hello & welcome", "line one\nline <two>")
	assert.Contains(t, out, "Hello &amp; welcome")
	assert.Contains(t, out, "line one<br>line &lt;two&gt;")
	assert.Equal(t, 1, strings.Count(out, "<h1"))
}
