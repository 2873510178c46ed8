package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemorySenderRecords(t *testing.T) {
	s := &MemorySender{}
	if err := s.Send(context.Background(), "a@example.com", "subj", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	last, ok := s.Last()
	if !ok || last.To != "a@example.com" || last.Body != "body" {
		t.Fatalf("unexpected last message %+v", last)
	}
	if len(s.Messages()) != 1 {
		t.Fatalf("expected 1 message, got %d", len(s.Messages()))
	}
}

func TestMemorySenderFailure(t *testing.T) {
	boom := errors.New("relay down")
	s := &MemorySender{Err: boom}
	if err := s.Send(context.Background(), "a@example.com", "s", "b"); !errors.Is(err, boom) {
		t.Fatalf("expected relay error, got %v", err)
	}
	if _, ok := s.Last(); ok {
		t.Fatal("failed send must not be recorded")
	}
}

func TestSendersHonorCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&MemorySender{}).Send(ctx, "a", "s", "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("memory: expected context.Canceled, got %v", err)
	}
	if err := NewLogSender(nil).Send(ctx, "a", "s", "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("log: expected context.Canceled, got %v", err)
	}
}

func TestLogSenderWritesDebugEntry(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := NewLogSender(zap.New(core))
	if err := s.Send(context.Background(), "a@example.com", "Verify", "link"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if logs.Len() != 1 || logs.All()[0].ContextMap()["subject"] != "Verify" {
		t.Fatalf("unexpected log entries %v", logs.All())
	}
}

func TestSMTPConfigValidate(t *testing.T) {
	ok := SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	bad := []SMTPConfig{
		{Port: 587, From: "x@example.com"},
		{Host: "h", Port: 0, From: "x@example.com"},
		{Host: "h", Port: 25},
		{Host: "h", Port: 25, From: "x@example.com", TLSMode: "tls13"},
	}
	for _, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestSMTPMessageHeaders(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}, nil)
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	var buf bytes.Buffer
	if _, err := s.message("a@example.com", "Verify your email", "challenge-abc").WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{"From: noreply@example.com", "To: a@example.com", "Subject: Verify your email", "challenge-abc"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestSMTPSendReportsDialFailure(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "noreply@example.com", TLSMode: "none"}, nil)
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	if err := s.Send(context.Background(), "a@example.com", "s", "b"); err == nil {
		t.Fatal("expected dial failure")
	}
}
