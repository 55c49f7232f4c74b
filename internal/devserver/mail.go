package devserver

import (
	"context"
	"sync"

	"github.com/calyxlabs/accountkit/internal/logging"
)

const (
	MessageActivation    = "activation"
	MessagePasswordReset = "password_reset"
	MessageConfirmation  = "confirmation"
)

// Message is an out-of-band notice to a user. Confirmation messages carry
// no token or link.
type Message struct {
	Kind  string
	To    string
	UID   string
	Token string
	Link  string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Outbox keeps sent messages in memory and logs each link. Tests read
// tokens from it.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	logger   logging.Logger
}

func NewOutbox(logger logging.Logger) *Outbox {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Outbox{logger: logger}
}

func (o *Outbox) Send(ctx context.Context, msg Message) error {
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()

	o.logger.Info(ctx, "mail sent", "kind", msg.Kind, "to", msg.To, "link", msg.Link)
	return nil
}

// Last returns the most recent message of kind sent to addr.
func (o *Outbox) Last(kind, addr string) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if m := o.messages[i]; m.Kind == kind && m.To == addr {
			return m, true
		}
	}
	return Message{}, false
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}
