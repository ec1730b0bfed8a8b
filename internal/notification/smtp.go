package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wneessen/go-mail"
)

// SMTPTransport delivers mail via SMTP using the go-mail library.
type SMTPTransport struct {
	client *mail.Client
	config SMTPConfig

	// mail.Client holds a single connection.
	mu sync.Mutex
}

// NewSMTPTransport creates an SMTPTransport with a client configured from cfg.
// No connection is opened until the first message is sent.
func NewSMTPTransport(cfg SMTPConfig) (Transport, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.FromAddr == "" {
		return nil, errors.New("smtp from address is required")
	}

	opts := []mail.Option{
		mail.WithTLSPolicy(tlsPolicyFromEncryption(cfg.Encryption)),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Encryption == EncryptionSSLTLS {
		opts = append(opts, mail.WithSSL())
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &SMTPTransport{client: c, config: cfg}, nil
}

// SendMail builds a message from req and delivers it using the configured SMTP server.
func (t *SMTPTransport) SendMail(ctx context.Context, req SendRequest) error {
	m, err := buildMessage(t.config, req)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.DialAndSendWithContext(ctx, m)
}

// buildMessage converts a SendRequest into a go-mail message.
func buildMessage(cfg SMTPConfig, req SendRequest) (*mail.Msg, error) {
	m := mail.NewMsg()
	if cfg.FromName != "" {
		if err := m.FromFormat(cfg.FromName, cfg.FromAddr); err != nil {
			return nil, fmt.Errorf("invalid from address: %w", err)
		}
	} else if err := m.From(cfg.FromAddr); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}

	if err := m.To(req.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", req.To, err)
	}

	m.Subject(req.Subject)
	m.SetBodyString(mail.TypeTextHTML, req.HTML)

	for _, att := range req.Attachments {
		var opts []mail.FileOption
		if att.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(att.ContentType)))
		}
		if err := m.AttachReader(att.Filename, bytes.NewReader(att.Content), opts...); err != nil {
			return nil, fmt.Errorf("attaching %q: %w", att.Filename, err)
		}
	}
	return m, nil
}

// tlsPolicyFromEncryption converts the encryption string to a go-mail TLSPolicy.
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case EncryptionSSLTLS:
		return mail.TLSMandatory
	case EncryptionStartTLS:
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
