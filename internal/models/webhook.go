package models

// WebhookDestination is one configured chat-notification target for a gallery.
// A gallery may have any number configured and at most one marked current.
type WebhookDestination struct {
	Channel string `json:"channel"`
	Token   string `json:"token"`
	Name    string `json:"name"`
}
