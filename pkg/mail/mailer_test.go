package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "host is required")

	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, mailer)
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{
		To:      []string{"test@example.com"},
		Subject: "Test",
		Body:    "Hello",
	})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestSMTPMailerDefaultTimeout(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
		UseTLS:  true,
	})
	require.NoError(t, err)

	sm, ok := mailer.(*smtpMailer)
	require.True(t, ok)
	require.Equal(t, 10*time.Second, sm.cfg.Timeout)
}

func TestSMTPMailerSendRequiresRecipients(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{
		To:      []string{"   ", "\t"},
		Subject: "No recipients",
		Body:    "Body",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one recipient")
}

func TestSMTPMailerSendValidatesAddresses(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
	})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{
		From: "invalid-from",
		To:   []string{"user@example.com"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid from address")

	err = mailer.Send(context.Background(), Message{
		From: "no-reply@example.com",
		To:   []string{"user@example.com", "bad-address"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid recipient address")
}

type fakeSMTPClient struct {
	from string
	rcpt []string
	data bytes.Buffer
	quit bool
}

func (f *fakeSMTPClient) Mail(from string) error { f.from = from; return nil }

func (f *fakeSMTPClient) Rcpt(to string) error { f.rcpt = append(f.rcpt, to); return nil }

func (f *fakeSMTPClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&f.data}, nil
}

func (f *fakeSMTPClient) Quit() error { f.quit = true; return nil }

func (f *fakeSMTPClient) Close() error { return nil }

func (f *fakeSMTPClient) StartTLS(*tls.Config) error { return nil }

func (f *fakeSMTPClient) Auth(smtp.Auth) error { return nil }

func (f *fakeSMTPClient) Extension(string) (bool, string) { return false, "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestSMTPMailerSendDeliversMessage(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	})
	require.NoError(t, err)

	client := &fakeSMTPClient{}
	sm := mailer.(*smtpMailer)
	sm.dialFn = func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
		server, conn := net.Pipe()
		_ = server.Close()
		return conn, client, nil
	}
	sm.authFn = func(smtpClient, SMTPSettings) error { return nil }

	err = mailer.Send(context.Background(), Message{
		To:      []string{"alice@example.com", " alice@example.com ", "bob@example.com"},
		Subject: "Hello\r\nWorld",
		Body:    "Body",
	})
	require.NoError(t, err)

	require.Equal(t, "no-reply@example.com", client.from)
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, client.rcpt)
	require.True(t, client.quit)

	payload := client.data.String()
	require.Contains(t, payload, "Subject: Hello  World")
	require.Contains(t, payload, "\r\n\r\nBody")
}

func TestRenderMessage(t *testing.T) {
	content := renderMessage("from@example.com", []string{"to@example.com"}, "Subject\r\nBreak", "Body")
	require.Contains(t, content, "From: from@example.com")
	require.Contains(t, content, "Subject: Subject  Break")
	require.True(t, strings.HasSuffix(content, "\r\n\r\nBody"))
}
