package templates

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const (
	logoURL      = "https://i.imghippo.com/files/McE4639Y.png"
	brandColor   = "#1a73e8"
	supportEmail = "support@smartcareconnects.com"
)

// RenderGenericEmail generates branded HTML for a generic email.
// The subject is displayed in the header banner, and bodyContent is plain text
// that gets HTML-escaped and has newlines converted to <br> tags.
func RenderGenericEmail(subject, bodyContent string) string {
	escaped := html.EscapeString(bodyContent)
	htmlBody := "<p style=\"font-size: 16px;\">" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
	return layout(subject, htmlBody, time.Now().Year())
}

// layout wraps already escaped body HTML in the SmartCare Connect frame
func layout(title, body string, year int) string {
	safeTitle := html.EscapeString(title)
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 1px solid #e0e0e0; border-radius: 8px; overflow: hidden;">
  <div style="background-color: white; padding: 20px; text-align: center;">
    <img src="%s" alt="SmartCare Connect Logo" style="height: 50px;">
    <h1 style="color: %s; margin: 10px 0 0 0;">%s</h1>
  </div>
  <div style="padding: 20px;">
    %s
  </div>
  <div style="background-color: #f1f3f4; padding: 15px; text-align: center; font-size: 12px; color: #666;">
    <p>&copy; %d SmartCare Connect. All rights reserved.</p>
    <p>For any questions, contact us at %s</p>
  </div>
</div>`, logoURL, brandColor, safeTitle, body, year, supportEmail)
}
