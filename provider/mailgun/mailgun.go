package mailgun

import (
	"context"

	"github.com/mailgun/mailgun-go/v3"

	"github.com/interactive-solutions/go-campaign"
)

type MailgunOption func(t *mailgunTransport)

func SetFrom(from string) MailgunOption {
	return func(t *mailgunTransport) {
		t.from = from
	}
}

func SetReplyTo(replyTo string) MailgunOption {
	return func(t *mailgunTransport) {
		t.replyTo = replyTo
	}
}

// SetSubject sets the subject line used for every campaign message sent
// through this transport.
func SetSubject(subject string) MailgunOption {
	return func(t *mailgunTransport) {
		t.subject = subject
	}
}

type mailgunTransport struct {
	mg mailgun.Mailgun

	from    string
	replyTo string
	subject string
}

func NewMailgunTransport(mailgunClient mailgun.Mailgun, options ...MailgunOption) campaign.BatchTransport {
	t := &mailgunTransport{
		mg: mailgunClient,
	}

	for _, option := range options {
		option(t)
	}

	return t
}

func (t *mailgunTransport) Send(ctx context.Context, address, message string) (string, error) {
	return t.deliver(ctx, message, address)
}

func (t *mailgunTransport) SendBatch(ctx context.Context, addresses []string, message string) (string, error) {
	return t.deliver(ctx, message, addresses...)
}

func (t *mailgunTransport) deliver(ctx context.Context, message string, addresses ...string) (string, error) {
	msg := t.mg.NewMessage(t.from, t.subject, message, addresses...)

	if t.replyTo != "" {
		msg.SetReplyTo(t.replyTo)
	}

	_, id, err := t.mg.Send(ctx, msg)

	return id, err
}
