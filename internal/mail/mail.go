package mail

import "context"

// Recipient addresses one outbound message.
type Recipient struct {
	Address string `json:"address"`
}

// Message is the payload contract of the mail collaborator consuming the
// queue: a template name, template data and a recipient list.
type Message struct {
	Template   string         `json:"template"`
	Data       map[string]any `json:"data"`
	Recipients []Recipient    `json:"recipients"`
}

// Client enqueues notification mail. Dispatch is best-effort by design;
// a failed enqueue never affects the response already decided.
type Client interface {
	SendMail(ctx context.Context, template string, data map[string]any, recipients []Recipient) error
}
