package email

import (
	"context"
	"errors"
	"fmt"
)

// Sender define la interfaz para envio de correos transaccionales.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Reason clasifica el motivo de un fallo de entrega.
type Reason string

const (
	ReasonNotConfigured   Reason = "not_configured"
	ReasonDNSUnresolvable Reason = "dns_unresolvable"
	ReasonAuthFailed      Reason = "auth_failed"
	ReasonTimeout         Reason = "timeout"
	ReasonUnknown         Reason = "unknown"
)

// SendError es un fallo de entrega con motivo clasificado.
type SendError struct {
	Reason Reason
	Err    error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("email send failed: %s", e.Reason)
	}
	return fmt.Sprintf("email send failed (%s): %v", e.Reason, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ReasonOf extrae el motivo clasificado de un error de envio.
func ReasonOf(err error) Reason {
	var se *SendError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ReasonUnknown
}

type disabledSender struct {
	reason string
}

// NewDisabledSender devuelve un Sender que siempre falla como no configurado.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _, _, _ string) error {
	msg := s.reason
	if msg == "" {
		msg = "email sender disabled"
	}
	return &SendError{Reason: ReasonNotConfigured, Err: errors.New(msg)}
}
