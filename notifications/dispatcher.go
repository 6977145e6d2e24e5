package notifications

import (
	"log"

	"github.com/dragusinb/claude-dev-hub-sub001/models"
)

// Dispatcher sends a decided alert over every channel the user configured.
// Channels fail independently: one channel's error is logged and never
// reaches the caller or blocks the other channel.
type Dispatcher struct {
	// providersFor lets tests substitute channels.
	providersFor func(settings models.AlertSettings) []Provider
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{providersFor: providersFromSettings}
}

func providersFromSettings(settings models.AlertSettings) []Provider {
	var providers []Provider
	if settings.WebhookURL != "" {
		providers = append(providers, NewWebhookProvider(settings.WebhookURL))
	}
	if settings.Email != "" && settings.SMTPServer != "" {
		providers = append(providers, NewEmailProvider(
			settings.SMTPServer, settings.SMTPPort, settings.SMTPUser, settings.SMTPPassword, settings.Email))
	}
	return providers
}

// Dispatch attempts every configured channel and reports whether at least
// one succeeded. No configured channels is not an error; it simply means
// nothing was notified.
func (d *Dispatcher) Dispatch(settings models.AlertSettings, a Alert) bool {
	notified := false
	for _, p := range d.providersFor(settings) {
		if err := p.Send(a); err != nil {
			log.Printf("❌ %s notification failed for %s alert on %s: %v", p.Name(), a.Kind, a.SubjectName, err)
			continue
		}
		notified = true
	}
	return notified
}
