// Package notification renders staff messages and relays them to a chat
// channel with bounded retries.
package notification

import (
	"fmt"
	"strings"
	"sync"
)

const (
	TemplateInvitation          = "team-invitation"
	TemplateTeamComplete        = "team-complete"
	TemplatePIN                 = "team-pin"
	TemplateInvitationCancelled = "invitation-cancelled"
)

type Template struct {
	ID   string
	Body string
}

// TemplateEngine renders templates by replacing {{key}} placeholders.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range builtIn {
		e.templates[t.ID] = t
	}
	return e
}

var builtIn = []Template{
	{
		ID: TemplateInvitation,
		Body: "Convocatoria a parto: {{patient}} ({{record}}), sala {{room}}. " +
			"Se requiere {{role}}. Responda aceptando o rechazando.",
	},
	{
		ID:   TemplateTeamComplete,
		Body: "Equipo completo para {{patient}} ({{record}}). Integrantes: {{members}}.",
	},
	{
		ID:   TemplatePIN,
		Body: "PIN de confirmación del equipo para {{record}}: {{pin}}. Válido por {{minutes}} minutos.",
	},
	{
		ID:   TemplateInvitationCancelled,
		Body: "La convocatoria para {{record}} fue cancelada: {{reason}}.",
	},
}

// Register adds or replaces a template.
func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Render substitutes data into the template. Placeholders without a value
// are left as-is.
func (e *TemplateEngine) Render(id string, data map[string]string) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[id]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", id)
	}

	body := t.Body
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}
