package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

const attemptTimeout = 30 * time.Second

// SMTPSender envia correos via SMTP probando puertos en orden de prioridad.
type SMTPSender struct {
	host     string
	ports    []int
	username string
	password string
	from     string
	fromName string
}

func NewSMTPSender(host string, ports []int, username, password, from, fromName string) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if len(ports) == 0 {
		ports = []int{465, 587}
	}
	return &SMTPSender{
		host:     host,
		ports:    ports,
		username: strings.TrimSpace(username),
		password: strings.Join(strings.Fields(password), ""),
		from:     from,
		fromName: fromName,
	}, nil
}

// Send entrega el correo por el primer transporte que funcione y devuelve
// el primer exito o el ultimo fallo clasificado.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return &SendError{Reason: ReasonUnknown, Err: errors.New("to email is required")}
	}

	if _, err := net.DefaultResolver.LookupHost(ctx, s.host); err != nil {
		return &SendError{Reason: ReasonDNSUnresolvable, Err: err}
	}

	msg := buildMessage(s.from, s.fromName, to, subject, body)

	var lastErr error
	for _, port := range s.ports {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		err := s.attempt(attemptCtx, port, to, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &SendError{Reason: ReasonNotConfigured, Err: errors.New("no smtp ports configured")}
	}
	return lastErr
}

// attempt envia por un puerto concreto: 465 es TLS implicito, el resto STARTTLS.
func (s *SMTPSender) attempt(ctx context.Context, port int, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.host, port)
	dialer := &net.Dialer{}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return classifyNetErr(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if port == 465 {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: s.host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return classifyNetErr(err)
		}
		return s.deliver(tlsConn, false, to, msg)
	}
	return s.deliver(conn, true, to, msg)
}

func (s *SMTPSender) deliver(conn net.Conn, startTLS bool, to string, msg []byte) error {
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return classifyNetErr(err)
	}
	defer client.Quit()

	if startTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return classifyNetErr(err)
			}
		}
	}

	if s.username != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return &SendError{Reason: ReasonAuthFailed, Err: err}
		}
	}

	if err := client.Mail(s.from); err != nil {
		return classifyNetErr(err)
	}
	if err := client.Rcpt(to); err != nil {
		return classifyNetErr(err)
	}
	writer, err := client.Data()
	if err != nil {
		return classifyNetErr(err)
	}
	if _, err := writer.Write(msg); err != nil {
		_ = writer.Close()
		return classifyNetErr(err)
	}
	if err := writer.Close(); err != nil {
		return classifyNetErr(err)
	}
	return nil
}

func classifyNetErr(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &SendError{Reason: ReasonDNSUnresolvable, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &SendError{Reason: ReasonTimeout, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SendError{Reason: ReasonTimeout, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &SendError{Reason: ReasonTimeout, Err: err}
	}
	return &SendError{Reason: ReasonUnknown, Err: err}
}

func buildMessage(from, fromName, to, subject, body string) []byte {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}

	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}
