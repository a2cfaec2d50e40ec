package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/jwalitptl/practice-api/internal/model"
)

// Rendered is a ready-to-send email body.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type templateSet struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// Registry maps notification kinds to templates. Kinds without an entry use the generic one.
type Registry struct {
	clinicName string
	loc        *time.Location
	sets       map[model.NotificationType]*templateSet
	generic    *templateSet
}

type templateSource struct {
	subject, text, html string
}

var sources = map[model.NotificationType]templateSource{
	model.NotificationAppointmentReminder: {
		subject: `Appointment reminder: {{.Data.PatientName}}`,
		text: `Hello {{.Recipient}},

You have an appointment with {{.Data.PatientName}} on {{date .Data.AppointmentDate}} at {{clock .Data.AppointmentDate}}.
{{if .Data.Type}}Type: {{.Data.Type}}
{{end}}{{if .Data.Duration}}Duration: {{.Data.Duration}} minutes
{{end}}
{{.Clinic}}`,
		html: `<p>Hello {{.Recipient}},</p>
<p>You have an appointment with <strong>{{.Data.PatientName}}</strong> on {{date .Data.AppointmentDate}} at {{clock .Data.AppointmentDate}}.</p>
{{if .Data.Type}}<p>Type: {{.Data.Type}}</p>{{end}}{{if .Data.Duration}}<p>Duration: {{.Data.Duration}} minutes</p>{{end}}
<p>{{.Clinic}}</p>`,
	},
	model.NotificationPatientUpdate: {
		subject: `Patient update: {{.Data.PatientName}}`,
		text: `Hello {{.Recipient}},

{{.Message}}
{{if .Data.Details}}
{{.Data.Details}}
{{end}}
{{.Clinic}}`,
		html: `<p>Hello {{.Recipient}},</p>
<p>{{.Message}}</p>
{{if .Data.Details}}<p>{{.Data.Details}}</p>{{end}}
<p>{{.Clinic}}</p>`,
	},
	model.NotificationSystemAlert: {
		subject: `[{{upper (print .Data.Severity)}}] {{.Data.Title}}`,
		text: `Hello {{.Recipient}},

{{.Data.Description}}
{{if .Data.ActionURL}}
Details: {{.Data.ActionURL}}
{{end}}
{{.Clinic}}`,
		html: `<p>Hello {{.Recipient}},</p>
<p>{{.Data.Description}}</p>
{{if .Data.ActionURL}}<p><a href="{{.Data.ActionURL}}">View details</a></p>{{end}}
<p>{{.Clinic}}</p>`,
	},
	model.NotificationStaffInvitation: {
		subject: `You're invited to join {{.Clinic}}`,
		text: `Hello {{.Data.Name}},

You have been invited to join {{.Clinic}} as {{.Data.Role}}.
Accept the invitation: {{.Data.InviteLink}}
`,
		html: `<p>Hello {{.Data.Name}},</p>
<p>You have been invited to join {{.Clinic}} as <strong>{{.Data.Role}}</strong>.</p>
<p><a href="{{.Data.InviteLink}}">Accept the invitation</a></p>`,
	},
}

var genericSource = templateSource{
	subject: `{{.Title}}`,
	text: `Hello {{.Recipient}},

{{.Message}}

{{.Clinic}}`,
	html: `<p>Hello {{.Recipient}},</p>
<p>{{.Message}}</p>
<p>{{.Clinic}}</p>`,
}

// NewRegistry parses every template. Times are rendered in loc.
func NewRegistry(clinicName string, loc *time.Location) (*Registry, error) {
	if loc == nil {
		loc = time.UTC
	}
	r := &Registry{
		clinicName: clinicName,
		loc:        loc,
		sets:       make(map[model.NotificationType]*templateSet, len(sources)),
	}

	generic, err := r.parse("generic", genericSource)
	if err != nil {
		return nil, err
	}
	r.generic = generic

	for kind, src := range sources {
		set, err := r.parse(string(kind), src)
		if err != nil {
			return nil, err
		}
		r.sets[kind] = set
	}
	return r, nil
}

func (r *Registry) parse(name string, src templateSource) (*templateSet, error) {
	fm := texttemplate.FuncMap{
		"upper": strings.ToUpper,
		"date":  func(t time.Time) string { return t.In(r.loc).Format("Monday, January 2, 2006") },
		"clock": func(t time.Time) string { return t.In(r.loc).Format("3:04 PM") },
	}

	subject, err := texttemplate.New(name + ".subject").Funcs(fm).Parse(src.subject)
	if err != nil {
		return nil, fmt.Errorf("parse %s subject: %w", name, err)
	}
	text, err := texttemplate.New(name + ".text").Funcs(fm).Parse(src.text)
	if err != nil {
		return nil, fmt.Errorf("parse %s text: %w", name, err)
	}
	html, err := htmltemplate.New(name + ".html").Funcs(htmltemplate.FuncMap(fm)).Parse(src.html)
	if err != nil {
		return nil, fmt.Errorf("parse %s html: %w", name, err)
	}
	return &templateSet{subject: subject, text: text, html: html}, nil
}

// Render falls back to the generic template for kinds without their own.
func (r *Registry) Render(kind model.NotificationType, to Recipient, content Content) (*Rendered, error) {
	set, ok := r.sets[kind]
	if !ok {
		set = r.generic
	}

	name := to.Name
	if name == "" {
		name = "there"
	}
	view := map[string]interface{}{
		"Recipient": name,
		"Clinic":    r.clinicName,
		"Title":     content.Title,
		"Message":   content.Message,
		"Data":      content.Data,
	}

	var subject, text, html bytes.Buffer
	if err := set.subject.Execute(&subject, view); err != nil {
		return nil, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := set.text.Execute(&text, view); err != nil {
		return nil, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := set.html.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("render %s html: %w", kind, err)
	}

	return &Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
