package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"NewsDigest/internal/config"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/render"
)

const sslPort = 465

type smtpClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Sender delivers digests over SMTP as multipart text+HTML mail.
type Sender struct {
	cfg  config.EmailConfig
	dial func(cfg config.EmailConfig) (smtpClient, error)
}

var _ ports.Notifier = (*Sender)(nil)

// NewSender wires SMTP settings.
func NewSender(cfg config.EmailConfig) *Sender {
	return &Sender{cfg: cfg, dial: newSMTPClient}
}

func newSMTPClient(cfg config.EmailConfig) (smtpClient, error) {
	port := cfg.Port
	if port == 0 {
		port = sslPort
	}

	opts := []gomail.Option{gomail.WithPort(port)}
	if port == sslPort {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

// PublishDigest renders and sends one message.
func (s *Sender) PublishDigest(ctx context.Context, digest ports.Digest) error {
	if !s.cfg.Enabled() {
		return fmt.Errorf("mail sender misconfigured")
	}

	msg, err := s.buildMessage(digest)
	if err != nil {
		return err
	}

	client, err := s.dial(s.cfg)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (s *Sender) buildMessage(digest ports.Digest) (*gomail.Msg, error) {
	html, err := render.EmailHTML(digest)
	if err != nil {
		return nil, fmt.Errorf("render mail: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(s.cfg.To); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(digest.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, render.PlainText(digest))
	msg.AddAlternativeString(gomail.TypeTextHTML, html)
	return msg, nil
}
