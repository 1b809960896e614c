package sms

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"homieplanner/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// templateRenderer implements domain.MessageRenderer using embedded
// template files.
type templateRenderer struct{}

// NewTemplateRenderer returns a MessageRenderer that loads message bodies
// from the embedded templates folder.
func NewTemplateRenderer() domain.MessageRenderer {
	return &templateRenderer{}
}

// Render executes the named template (e.g. "invite") with data and returns
// the message body.
func (r *templateRenderer) Render(templateName string, data any) (string, error) {
	raw, err := templateFS.ReadFile("templates/" + templateName + ".txt")
	if err != nil {
		return "", err
	}
	t, err := template.New(templateName).Parse(string(raw))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
