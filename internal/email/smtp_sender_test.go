package email

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func TestNewSMTPSenderValidation(t *testing.T) {
	if _, err := NewSMTPSender("", nil, "", "", "from@example.com", ""); err == nil {
		t.Fatalf("expected error for missing host")
	}
	if _, err := NewSMTPSender("smtp.example.com", nil, "", "", "", ""); err == nil {
		t.Fatalf("expected error for missing from")
	}

	s, err := NewSMTPSender("smtp.example.com", nil, "user", "app pass word", "from@example.com", "Digital Voyager")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.ports) != 2 || s.ports[0] != 465 || s.ports[1] != 587 {
		t.Fatalf("expected default port order 465,587, got %v", s.ports)
	}
	// Los app passwords de Gmail llegan con espacios; se limpian al construir.
	if s.password != "apppassword" {
		t.Fatalf("expected whitespace stripped from password, got %q", s.password)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("from@example.com", "Digital Voyager", "to@example.com", "Hello", "Body line"))

	if !strings.Contains(msg, "From: Digital Voyager <from@example.com>") {
		t.Fatalf("expected display-name from header:\n%s", msg)
	}
	if !strings.Contains(msg, "Subject: Hello") {
		t.Fatalf("expected subject header:\n%s", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nBody line") {
		t.Fatalf("expected headers separated from body:\n%s", msg)
	}

	plain := string(buildMessage("from@example.com", "", "to@example.com", "Hello", "Body"))
	if !strings.Contains(plain, "From: from@example.com\r\n") {
		t.Fatalf("expected bare from header without display name:\n%s", plain)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyNetErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Reason
	}{
		{"dns", &net.DNSError{Err: "no such host", Name: "smtp.example.com"}, ReasonDNSUnresolvable},
		{"timeout", timeoutErr{}, ReasonTimeout},
		{"deadline", context.DeadlineExceeded, ReasonTimeout},
		{"refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, ReasonTimeout},
		{"other", errors.New("550 mailbox unavailable"), ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ReasonOf(classifyNetErr(tc.err))
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestSendErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	se := &SendError{Reason: ReasonAuthFailed, Err: inner}

	if !errors.Is(se, inner) {
		t.Fatalf("expected unwrap to inner error")
	}
	if ReasonOf(se) != ReasonAuthFailed {
		t.Fatalf("expected auth reason")
	}
	if ReasonOf(errors.New("plain")) != ReasonUnknown {
		t.Fatalf("expected unknown for unclassified error")
	}
}

func TestDisabledSender(t *testing.T) {
	s := NewDisabledSender("email sender not configured")
	err := s.Send(context.Background(), "to@example.com", "subject", "body")
	if err == nil {
		t.Fatalf("expected error from disabled sender")
	}
	if ReasonOf(err) != ReasonNotConfigured {
		t.Fatalf("expected not_configured reason, got %s", ReasonOf(err))
	}
}

// Un host que no resuelve corta antes de intentar ningun puerto.
func TestSendDNSFailureShortCircuits(t *testing.T) {
	s, err := NewSMTPSender("host.invalid", []int{465, 587}, "", "", "from@example.com", "")
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sendErr := s.Send(ctx, "to@example.com", "subject", "body")
	if sendErr == nil {
		t.Fatalf("expected dns failure")
	}
	if ReasonOf(sendErr) != ReasonDNSUnresolvable {
		t.Fatalf("expected dns reason, got %s (%v)", ReasonOf(sendErr), sendErr)
	}
}
