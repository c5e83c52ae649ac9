package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relieflink/relieflink/pkg/mail"
)

type fakeMailer struct {
	sent    []mail.Message
	failTo  map[string]error
	hardErr error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if f.hardErr != nil {
		return f.hardErr
	}
	if len(msg.To) == 1 {
		if err, ok := f.failTo[msg.To[0]]; ok {
			return err
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestSMTPTransportSendBatch(t *testing.T) {
	mailer := &fakeMailer{
		failTo: map[string]error{"bad@example.com": errors.New("550 no such user")},
	}
	transport, err := NewSMTPTransport(mailer, "alerts@relieflink.io")
	require.NoError(t, err)

	result, err := transport.SendBatch(context.Background(), []Message{
		{ID: "n-1", Recipient: "good@example.com", Subject: "alert", Body: "body"},
		{ID: "n-2", Recipient: "bad@example.com", Subject: "alert", Body: "body"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"n-1"}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "n-2", result.Failed[0].ID)
	require.Contains(t, result.Failed[0].Reason, "550")

	require.Len(t, mailer.sent, 1)
	require.Equal(t, "alerts@relieflink.io", mailer.sent[0].From)
}

func TestSMTPTransportDisabledIsHardError(t *testing.T) {
	mailer := &fakeMailer{hardErr: mail.ErrSMTPDisabled}
	transport, err := NewSMTPTransport(mailer, "alerts@relieflink.io")
	require.NoError(t, err)

	_, err = transport.SendBatch(context.Background(), []Message{
		{ID: "n-1", Recipient: "good@example.com"},
	})
	require.ErrorIs(t, err, mail.ErrSMTPDisabled)
}
