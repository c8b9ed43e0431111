package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/payimport/internal/importer"
)

//go:embed templates.yaml
var defaultTemplates []byte

// templateSource is the YAML layout of a templates file.
type templateSource struct {
	Payer  messageSource `yaml:"payer"`
	Lodger messageSource `yaml:"lodger"`
}

type messageSource struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Templates renders payer and lodger messages.
type Templates struct {
	payer  message
	lodger message
}

type message struct {
	subject *template.Template
	body    *template.Template
}

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// MessageData is what templates can reference.
type MessageData struct {
	Name          string
	Email         string
	ExtNumber     string
	Date          string // YYYY-MM-DD
	Price         string
	Currency      string
	Description   string
	Apartment     string
	AccountNumber string
	Building      string
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() (*Templates, error) {
	return parseTemplates(defaultTemplates)
}

// LoadTemplates reads templates from a YAML file. An empty path returns the
// built-in templates.
func LoadTemplates(path string) (*Templates, error) {
	if path == "" {
		return DefaultTemplates()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	return parseTemplates(data)
}

func parseTemplates(data []byte) (*Templates, error) {
	var src templateSource
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	payer, err := src.Payer.compile("payer")
	if err != nil {
		return nil, err
	}
	lodger, err := src.Lodger.compile("lodger")
	if err != nil {
		return nil, err
	}
	return &Templates{payer: payer, lodger: lodger}, nil
}

func (s messageSource) compile(name string) (message, error) {
	if strings.TrimSpace(s.Subject) == "" || strings.TrimSpace(s.Body) == "" {
		return message{}, fmt.Errorf("template %s: subject and body are required", name)
	}
	subject, err := template.New(name + ".subject").Option("missingkey=error").Parse(s.Subject)
	if err != nil {
		return message{}, fmt.Errorf("template %s subject: %w", name, err)
	}
	body, err := template.New(name + ".body").Option("missingkey=error").Parse(s.Body)
	if err != nil {
		return message{}, fmt.Errorf("template %s body: %w", name, err)
	}
	return message{subject: subject, body: body}, nil
}

// Payer renders the message for the payer of p.
func (t *Templates) Payer(p importer.Payment) (Message, error) {
	return t.payer.render(newMessageData(p, p.Payer.Name, p.Payer.Email))
}

// Lodger renders the message for a lodger of p's apartment.
func (t *Templates) Lodger(p importer.Payment, r importer.Resident) (Message, error) {
	return t.lodger.render(newMessageData(p, r.Name, r.Email))
}

func (m message) render(data MessageData) (Message, error) {
	var subject, body bytes.Buffer
	if err := m.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := m.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}
	// Subjects are header values and must stay on one line.
	s := strings.Join(strings.Fields(subject.String()), " ")
	return Message{Subject: s, Body: body.String()}, nil
}

func newMessageData(p importer.Payment, name, email string) MessageData {
	if name == "" {
		name = email
	}
	return MessageData{
		Name:          name,
		Email:         email,
		ExtNumber:     p.ExtNumber,
		Date:          p.Date.Format(time.DateOnly),
		Price:         p.Price.StringFixed(2),
		Currency:      p.Currency.Code,
		Description:   p.Description,
		Apartment:     p.Apartment.Label,
		AccountNumber: p.Apartment.AccountNumber,
		Building:      p.Apartment.Building,
	}
}
