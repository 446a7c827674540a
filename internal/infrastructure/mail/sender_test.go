package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

type recordingClient struct {
	sent []*gomail.Msg
	err  error
}

func (r *recordingClient) DialAndSendWithContext(_ context.Context, messages ...*gomail.Msg) error {
	r.sent = append(r.sent, messages...)
	return r.err
}

func testConfig() config.EmailConfig {
	return config.EmailConfig{Host: "smtp.example.org", Port: 465, From: "me@example.org", To: "me@example.org"}
}

func testDigest() ports.Digest {
	return ports.Digest{
		Subject: "News digest (evening) — 2024-05-01",
		Items:   []domain.Item{{Title: "Markets", BodyText: "<p>Up</p>", Permalink: "https://e.org/a"}},
	}
}

func TestPublishDigestSendsMultipart(t *testing.T) {
	t.Parallel()

	client := &recordingClient{}
	s := NewSender(testConfig())
	s.dial = func(config.EmailConfig) (smtpClient, error) { return client, nil }

	require.NoError(t, s.PublishDigest(context.Background(), testDigest()))
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	assert.Equal(t, []string{"News digest (evening) — 2024-05-01"}, msg.GetGenHeader(gomail.HeaderSubject))

	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"me@example.org"}, rcpts)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/plain")
	assert.Contains(t, buf.String(), "text/html")
}

func TestPublishDigestPropagatesSendError(t *testing.T) {
	t.Parallel()

	s := NewSender(testConfig())
	s.dial = func(config.EmailConfig) (smtpClient, error) {
		return &recordingClient{err: errors.New("auth failed")}, nil
	}
	require.Error(t, s.PublishDigest(context.Background(), testDigest()))
}

func TestPublishDigestRequiresConfig(t *testing.T) {
	t.Parallel()

	require.Error(t, NewSender(config.EmailConfig{}).PublishDigest(context.Background(), testDigest()))
}

func TestBuildMessageRejectsBadAddress(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.From = "not an address"
	_, err := NewSender(cfg).buildMessage(testDigest())
	require.Error(t, err)
}

func TestNewSMTPClient(t *testing.T) {
	t.Parallel()

	_, err := newSMTPClient(config.EmailConfig{Host: "smtp.example.org", Port: 587, Username: "u", Password: "p"})
	require.NoError(t, err)

	_, err = newSMTPClient(config.EmailConfig{})
	require.Error(t, err)
}
