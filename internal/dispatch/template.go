package dispatch

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// EmailData carries the fields rendered into a disaster alert email.
type EmailData struct {
	FirstName          string
	DeclarationDate    time.Time
	DeclarationType    string
	DeclarationMeaning string
	IncidentMeanings   []string
	City               string
	CompanyName        string
	DesignatedArea     string
}

const emailSubject = "Disaster Alert: %s in your area"

var emailTemplate = template.Must(template.New("disaster_email").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(
	`Hello {{if .FirstName}}{{.FirstName}}{{else}}there{{end}},

A {{.DeclarationMeaning}} has been declared in your area.

Declaration Date: {{.DeclarationDate.Format "January 2, 2006"}}
Declaration Type: {{.DeclarationType}} ({{.DeclarationMeaning}})
{{- if .IncidentMeanings}}
Incident Types: {{join .IncidentMeanings ", "}}
{{- end}}
{{- if .DesignatedArea}}
Designated Area: {{.DesignatedArea}}
{{- end}}
{{- if .City}}
Location: {{.City}}
{{- end}}
{{- if .CompanyName}}
Company: {{.CompanyName}}
{{- end}}

Review the notification in your dashboard to acknowledge it and see the
recommended next steps for your business.

— The Relieflink Team
`))

// Renderer turns notification context into a subject and plain-text body.
type Renderer struct{}

// NewRenderer constructs a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the outbound subject and body for one alert.
func (r *Renderer) Render(data EmailData) (subject, body string, err error) {
	if data.DeclarationMeaning == "" {
		data.DeclarationMeaning = DeclarationTypeMeaning(data.DeclarationType)
	}

	var buf strings.Builder
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("dispatch: render email: %w", err)
	}

	return fmt.Sprintf(emailSubject, data.DeclarationMeaning), buf.String(), nil
}
