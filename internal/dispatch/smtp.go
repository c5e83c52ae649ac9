package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/relieflink/relieflink/pkg/mail"
)

// SMTPTransport adapts the SMTP mailer to the batched Transport contract.
// Messages within a window are sent one at a time; a per-message send
// problem becomes a Failure entry, while configuration-level problems
// (delivery disabled, no mailer) are hard errors.
type SMTPTransport struct {
	mailer mail.Mailer
	from   string
}

// NewSMTPTransport constructs an SMTPTransport.
func NewSMTPTransport(mailer mail.Mailer, from string) (*SMTPTransport, error) {
	if mailer == nil {
		return nil, errors.New("dispatch: mailer is required")
	}
	return &SMTPTransport{mailer: mailer, from: strings.TrimSpace(from)}, nil
}

// SendBatch delivers up to BatchSize messages over SMTP.
func (t *SMTPTransport) SendBatch(ctx context.Context, messages []Message) (BatchResult, error) {
	var result BatchResult

	for _, msg := range messages {
		err := t.mailer.Send(ctx, mail.Message{
			From:    t.from,
			To:      []string{msg.Recipient},
			Subject: msg.Subject,
			Body:    msg.Body,
		})
		if err != nil {
			if errors.Is(err, mail.ErrSMTPDisabled) {
				// Misconfiguration, not a per-message problem: nothing in
				// this window (or any later one) can be delivered.
				return result, err
			}
			result.Failed = append(result.Failed, Failure{ID: msg.ID, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, msg.ID)
	}

	return result, nil
}
