package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/notification"
)

var severityColors = map[string]string{
	"low":      "#28a745",
	"medium":   "#ffc107",
	"high":     "#fd7e14",
	"critical": "#dc3545",
}

var emailHTML = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px;">
  <div style="background-color: {{.Color}}; color: white; padding: 20px; text-align: center;">
    <h1>Security Alert</h1>
    <h2>{{.Title}}</h2>
  </div>
  <div style="padding: 20px;">
    <div style="background-color: #f8f9fa; padding: 15px; border-left: 4px solid {{.Color}};">
      <h3>Alert Details</h3>
      <p><strong>Severity:</strong> {{.Severity}}</p>
      <p><strong>Type:</strong> {{.Type}}</p>
      <p><strong>Time:</strong> {{.Time}}</p>
      <p><strong>Location:</strong> {{.Location}}</p>
      {{if .Camera}}<p><strong>Camera:</strong> {{.Camera}}</p>{{end}}
      {{if .Confidence}}<p><strong>Confidence:</strong> {{.Confidence}}</p>{{end}}
    </div>
    {{if .Description}}<div style="background-color: #f8f9fa; padding: 15px; margin-top: 10px;"><h3>Description</h3><p>{{.Description}}</p></div>{{end}}
    {{if .HasImage}}<div style="text-align: center; margin: 20px 0;"><img src="cid:alert_image" alt="Alert Image" style="max-width: 600px;"></div>{{end}}
  </div>
  <div style="background-color: #f8f9fa; padding: 10px; text-align: center; font-size: 12px; color: #6c757d;">
    <p>Please acknowledge this alert in the system dashboard.</p>
  </div>
</body>
</html>
`))

type emailView struct {
	Color       string
	Title       string
	Severity    string
	Type        string
	Time        string
	Location    string
	Camera      string
	Confidence  string
	Description string
	HasImage    bool
}

func viewOf(p *notification.Payload, hasImage bool) emailView {
	a := p.Alert
	v := emailView{
		Color:       severityColors[string(a.Severity)],
		Title:       a.Title,
		Severity:    strings.ToUpper(string(a.Severity)),
		Type:        a.Type,
		Time:        p.Timestamp.UTC().Format(time.RFC3339),
		Location:    p.Location(),
		Description: a.Description,
		HasImage:    hasImage,
	}
	if v.Color == "" {
		v.Color = "#6c757d"
	}
	if a.CameraID != nil {
		v.Camera = fmt.Sprintf("%d", *a.CameraID)
	}
	if a.ConfidenceScore != nil && *a.ConfidenceScore > 0 {
		v.Confidence = fmt.Sprintf("%.2f", *a.ConfidenceScore)
	}
	return v
}

// Subject renders "[SEVERITY] title"
func Subject(p *notification.Payload) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(p.Alert.Severity)), p.Alert.Title)
}

// TextBody renders the plain text email body
func TextBody(p *notification.Payload) string {
	v := viewOf(p, false)
	var b strings.Builder
	fmt.Fprintf(&b, "SECURITY ALERT\n\n%s\n\nAlert Details:\n", v.Title)
	fmt.Fprintf(&b, "- Severity: %s\n- Type: %s\n- Time: %s\n- Location: %s\n", v.Severity, v.Type, v.Time, v.Location)
	if v.Camera != "" {
		fmt.Fprintf(&b, "- Camera: %s\n", v.Camera)
	}
	if v.Confidence != "" {
		fmt.Fprintf(&b, "- Confidence: %s\n", v.Confidence)
	}
	if v.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", v.Description)
	}
	b.WriteString("\nPlease acknowledge this alert in the system dashboard.\n")
	return b.String()
}

// HTMLBody renders the HTML email body
func HTMLBody(p *notification.Payload, hasImage bool) (string, error) {
	var buf bytes.Buffer
	if err := emailHTML.Execute(&buf, viewOf(p, hasImage)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ShortMessage renders the one-line SMS and push text
func ShortMessage(p *notification.Payload) string {
	return fmt.Sprintf("ALERT: %s | %s | %s | Location: %s",
		p.Alert.Title,
		strings.ToUpper(string(p.Alert.Severity)),
		p.Timestamp.UTC().Format(time.RFC3339),
		p.Location(),
	)
}
