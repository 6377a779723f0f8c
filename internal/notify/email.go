package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	gopkgmail "gopkg.in/gomail.v2"
)

//go:embed templates/*
var templatesFS embed.FS

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	SSL      bool
}

// Email: одно письмо покупателю. Template — имя без расширения:
// рядом лежат <name>.html и <name>.txt.
type Email struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

type Mailer interface {
	Send(e Email) error
}

type EmailSender struct {
	cfg  SMTPConfig
	html *htmltemplate.Template
	text *texttemplate.Template
	send func(m *gopkgmail.Message) error
}

func NewEmailSender(cfg SMTPConfig) (*EmailSender, error) {
	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}

	d := gopkgmail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.SSL
	return &EmailSender{
		cfg:  cfg,
		html: html,
		text: text,
		send: func(m *gopkgmail.Message) error { return d.DialAndSend(m) },
	}, nil
}

func (s *EmailSender) Send(e Email) error {
	m, err := s.build(e)
	if err != nil {
		return err
	}
	return s.send(m)
}

func (s *EmailSender) build(e Email) (*gopkgmail.Message, error) {
	var htmlBody, plainBody bytes.Buffer
	if err := s.html.ExecuteTemplate(&htmlBody, e.Template+".html", e.Data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := s.text.ExecuteTemplate(&plainBody, e.Template+".txt", e.Data); err != nil {
		return nil, fmt.Errorf("render plain: %w", err)
	}

	m := gopkgmail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", plainBody.String())
	m.AddAlternative("text/html", htmlBody.String())
	return m, nil
}
