// Package mailer delivers email challenge messages. The engine depends only
// on the Sender interface; this package provides an SMTP transport, a
// log-only transport for development, and an in-memory recorder.
package mailer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/MrEthical07/goFactor/logging"
)

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message is one recorded delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// MemorySender records messages instead of delivering them. Err, when set,
// is returned from every Send and nothing is recorded.
type MemorySender struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (s *MemorySender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.messages = append(s.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of everything sent so far.
func (s *MemorySender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Last returns the most recent message.
func (s *MemorySender) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// LogSender writes messages to a logger instead of delivering them. It is
// meant for local development, where the debug log is the inbox.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger.With(logging.Component("mailer.log"))}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Debug("email not delivered (log transport)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
