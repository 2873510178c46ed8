package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	mail "github.com/go-mail/mail"
	"go.uber.org/zap"

	"github.com/MrEthical07/goFactor/logging"
)

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// TLSMode is "auto", "starttls", "ssl", or "none".
	TLSMode            string        `yaml:"tls_mode"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout"`
}

// Validate reports missing required settings.
func (c SMTPConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("smtp host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("smtp port must be in 1..65535")
	}
	if strings.TrimSpace(c.From) == "" {
		return errors.New("smtp from address is required")
	}
	switch c.TLSMode {
	case "", "auto", "starttls", "ssl", "none":
	default:
		return fmt.Errorf("unsupported smtp tls mode %q", c.TLSMode)
	}
	return nil
}

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) (*SMTPSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{
		cfg: cfg,
		logger: logger.With(
			logging.Component("mailer.smtp"),
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
		),
	}, nil
}

func (s *SMTPSender) message(to, subject, body string) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	}
	if s.cfg.Timeout > 0 {
		d.Timeout = s.cfg.Timeout
	}
	return d
}

// Send delivers the message. go-mail has no context support, so ctx is only
// checked before dialing and the configured Timeout bounds the exchange.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := s.logger.With(logging.Recipient(to))

	if err := s.dialer().DialAndSend(s.message(to, subject, body)); err != nil {
		log.Error("smtp send failed", logging.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Debug("email sent")
	return nil
}
