package email

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
	"time"
)

// Kind names one email template.
type Kind string

const (
	KindApplicationReceived Kind = "application_received"
	KindApplicationAccepted Kind = "application_accepted"
	KindApplicationRejected Kind = "application_rejected"
	// Delayed escalation of unread notifications.
	KindUnreadMessage      Kind = "unread_message"
	KindPendingApplication Kind = "pending_application"
)

// Data carries the values a template may reference.
type Data struct {
	To            string
	ProposalTitle string
	Pitch         string
	Message       string
	// Link is an app-relative path such as /dashboard?tab=my-proposals.
	Link string
}

type view struct {
	Data
	URL        string
	Heading    string
	Action     string
	Color      string
	ReasonNote string
	Year       int
}

const layoutHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>SkillSync Notification</title>
</head>
<body style="margin:0;padding:0;background-color:#f3f4f6;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;">
<table width="100%" cellpadding="0" cellspacing="0" style="background-color:#f3f4f6;padding:40px 20px;">
<tr><td align="center">
<table width="600" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;">
<tr><td style="background:linear-gradient(135deg,#6366f1 0%,#8b5cf6 100%);padding:30px;text-align:center;border-radius:8px 8px 0 0;">
<h1 style="color:#ffffff;margin:0;font-size:28px;">SkillSync</h1>
<p style="color:#e0e7ff;margin:5px 0 0 0;font-size:14px;">Exchange Skills, Build Connections</p>
</td></tr>
<tr><td style="padding:40px 30px;">{{template "content" .}}</td></tr>
<tr><td style="background-color:#f9fafb;padding:20px 30px;text-align:center;border-top:1px solid #e5e7eb;">
<p style="color:#6b7280;font-size:12px;margin:0 0 10px 0;">You're receiving this email because you're a member of SkillSync.</p>
<p style="color:#9ca3af;font-size:11px;margin:0;">&copy; {{.Year}} SkillSync. All rights reserved.</p>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`

const buttonHTML = `{{define "button"}}<p><a href="{{.URL}}" style="background-color:{{.Color}};color:white;padding:12px 24px;text-decoration:none;border-radius:6px;display:inline-block;margin-top:15px;">{{.Action}}</a></p>{{end}}`

var contents = map[Kind]string{
	KindApplicationReceived: `{{define "content"}}<p>You have a new applicant for your proposal <strong>{{.ProposalTitle}}</strong>.</p>
<p><strong>Pitch:</strong> {{.Pitch}}</p>
{{template "button" .}}{{end}}`,

	KindApplicationAccepted: `{{define "content"}}<h2 style="color:{{.Color}};">Application Accepted</h2>
<p>Your application for <strong>{{.ProposalTitle}}</strong> has been <strong>accepted</strong>.</p>
<p>Congratulations! The proposal owner has accepted your application. You can now start collaborating!</p>
{{template "button" .}}{{end}}`,

	KindApplicationRejected: `{{define "content"}}<h2 style="color:{{.Color}};">Application Rejected</h2>
<p>Your application for <strong>{{.ProposalTitle}}</strong> has been <strong>rejected</strong>.</p>
<p>Unfortunately, your application was not accepted this time. Keep exploring other opportunities!</p>
{{template "button" .}}{{end}}`,

	KindUnreadMessage: `{{define "content"}}<h2 style="color:{{.Color}};">{{.Heading}}</h2>
<p>{{.Message}}</p>
<p>{{.ReasonNote}}</p>
{{template "button" .}}{{end}}`,
}

func init() {
	contents[KindPendingApplication] = contents[KindUnreadMessage]
}

type spec struct {
	subject func(Data) string
	heading string
	action  string
	color   string
	link    string
}

var specs = map[Kind]spec{
	KindApplicationReceived: {
		subject: func(d Data) string { return "New Application for: " + d.ProposalTitle },
		action:  "View Application",
		color:   "#6366f1",
		link:    "/dashboard?tab=my-proposals",
	},
	KindApplicationAccepted: {
		subject: func(d Data) string { return "Application Accepted: " + d.ProposalTitle },
		action:  "View Dashboard",
		color:   "#10b981",
		link:    "/dashboard?tab=my-applications",
	},
	KindApplicationRejected: {
		subject: func(d Data) string { return "Application Rejected: " + d.ProposalTitle },
		action:  "View Dashboard",
		color:   "#ef4444",
		link:    "/dashboard?tab=my-applications",
	},
	KindUnreadMessage: {
		subject: func(Data) string { return "You have unread messages on SkillSync" },
		heading: "Unread Message",
		action:  "View Message",
		color:   "#6366f1",
		link:    "/dashboard",
	},
	KindPendingApplication: {
		subject: func(Data) string { return "New talent application for your proposal" },
		heading: "New Application",
		action:  "Review Application",
		color:   "#6366f1",
		link:    "/dashboard?tab=my-proposals",
	},
}

// Renderer turns a Kind and Data into a branded Message.
type Renderer struct {
	appURL    string
	templates map[Kind]*template.Template
	now       func() time.Time
}

// NewRenderer parses every template once. appURL prefixes all links.
func NewRenderer(appURL string) (*Renderer, error) {
	r := &Renderer{
		appURL:    strings.TrimRight(appURL, "/"),
		templates: make(map[Kind]*template.Template, len(contents)),
		now:       time.Now,
	}
	for kind, body := range contents {
		t, err := template.New(string(kind)).Parse(layoutHTML)
		if err != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		if _, err := t.Parse(buttonHTML); err != nil {
			return nil, fmt.Errorf("parse button: %w", err)
		}
		if _, err := t.Parse(body); err != nil {
			return nil, fmt.Errorf("parse %s: %w", kind, err)
		}
		r.templates[kind] = t
	}
	return r, nil
}

// Render builds the message for kind. The plain-text part is derived from the HTML.
func (r *Renderer) Render(kind Kind, data Data) (Message, error) {
	t, ok := r.templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown email kind %q", kind)
	}
	s := specs[kind]

	link := data.Link
	if link == "" {
		link = s.link
	}
	v := view{
		Data:       data,
		URL:        r.appURL + link,
		Heading:    s.heading,
		Action:     s.action,
		Color:      s.color,
		ReasonNote: "This has been waiting for your attention for over 10 minutes.",
		Year:       r.now().Year(),
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", kind, err)
	}
	body := buf.String()
	return Message{
		To:      data.To,
		Subject: s.subject(data),
		HTML:    body,
		Text:    PlainText(body),
	}, nil
}

var (
	headRe  = regexp.MustCompile(`(?is)<head>.*?</head>`)
	tagRe   = regexp.MustCompile(`<[^>]*>?`)
	spaceRe = regexp.MustCompile(`[ \t]*\n[\s]*`)
)

// PlainText strips markup from an HTML body.
func PlainText(body string) string {
	s := headRe.ReplaceAllString(body, "")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spaceRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
