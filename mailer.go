package storefront

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"net/url"
	"time"

	"github.com/goliatone/go-errors"
)

// SMTPMailer delivers verification mail over SMTP. Port 465 connections use
// implicit TLS, every other port upgrades with STARTTLS.
type SMTPMailer struct {
	cfg    MailTransportConfig
	auth   smtp.Auth
	logger Logger
}

var _ VerificationMailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg MailTransportConfig) (*SMTPMailer, error) {
	if !cfg.IsConfigured() {
		return nil, ErrMailerNotConfigured
	}

	return &SMTPMailer{
		cfg:    cfg,
		auth:   smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		logger: defLogger{},
	}, nil
}

func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// ValidateAddress reports whether the address is deliverable syntax.
func (m *SMTPMailer) ValidateAddress(address string) error {
	if _, err := mail.ParseAddress(address); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid email address").
			WithCode(errors.CodeBadRequest)
	}
	return nil
}

// SendVerification mails the verification link for the given token.
func (m *SMTPMailer) SendVerification(ctx context.Context, address, displayName, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.ValidateAddress(address); err != nil {
		return err
	}

	link := m.verificationLink(token)

	subject := "Verify your email address"
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\n"+
			"Confirm your email address by opening the link below. "+
			"The link expires in %d hours.\r\n\r\n%s\r\n\r\n"+
			"If you did not create an account, ignore this message.\r\n",
		displayName, int(VerificationTTL.Hours()), link,
	)

	return m.send(address, subject, body)
}

func (m *SMTPMailer) verificationLink(token string) string {
	base := m.cfg.BaseURL
	if base == "" {
		base = "http://localhost"
	}
	return base + "/auth/verify-email?token=" + url.QueryEscape(token)
}

func (m *SMTPMailer) send(recipient, subject, body string) error {
	msg := m.buildMessage(recipient, subject, body)
	address := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	// Port 465 = implicit TLS, otherwise STARTTLS
	if m.cfg.Port == 465 {
		return m.sendImplicitTLS(address, recipient, msg)
	}
	return m.sendSTARTTLS(address, recipient, msg)
}

func (m *SMTPMailer) timeout() time.Duration {
	timeout := time.Duration(m.cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return timeout
}

func (m *SMTPMailer) sendImplicitTLS(address, recipient string, msg []byte) error {
	tlsConfig := &tls.Config{ServerName: m.cfg.Host}

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: m.timeout()}, "tcp", address, tlsConfig)
	if err != nil {
		m.logger.Error("failed to connect to SMTP server %s (implicit TLS): %v", address, err)
		return err
	}
	defer conn.Close()

	return m.sendOverConn(conn, recipient, msg)
}

func (m *SMTPMailer) sendSTARTTLS(address, recipient string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", address, m.timeout())
	if err != nil {
		m.logger.Error("failed to connect to SMTP server %s: %v", address, err)
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		m.logger.Error("failed to create SMTP client: %v", err)
		return err
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: m.cfg.Host}
	if err = client.StartTLS(tlsConfig); err != nil {
		m.logger.Error("failed to start TLS: %v", err)
		return err
	}

	return m.sendViaClient(client, recipient, msg)
}

func (m *SMTPMailer) sendOverConn(conn net.Conn, recipient string, msg []byte) error {
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		m.logger.Error("failed to create SMTP client: %v", err)
		return err
	}
	defer client.Close()

	return m.sendViaClient(client, recipient, msg)
}

func (m *SMTPMailer) sendViaClient(client *smtp.Client, recipient string, msg []byte) error {
	if err := client.Auth(m.auth); err != nil {
		m.logger.Error("SMTP authentication failed: %v", err)
		return err
	}

	if err := client.Mail(m.cfg.Username); err != nil {
		m.logger.Error("failed to set sender: %v", err)
		return err
	}

	if err := client.Rcpt(recipient); err != nil {
		m.logger.Error("failed to set recipient %s: %v", recipient, err)
		return err
	}

	w, err := client.Data()
	if err != nil {
		m.logger.Error("failed to get data writer: %v", err)
		return err
	}

	if _, err = w.Write(msg); err != nil {
		m.logger.Error("failed to write message: %v", err)
		return err
	}

	if err = w.Close(); err != nil {
		m.logger.Error("failed to close data writer: %v", err)
		return err
	}

	return client.Quit()
}

func generateMessageID(domain string) string {
	t := time.Now().UnixNano()
	pid := rand.Int63()
	return fmt.Sprintf("<%d.%d@%s>", t, pid, domain)
}

func (m *SMTPMailer) buildMessage(recipient, subject, body string) []byte {
	encodedSubject := mime.QEncoding.Encode("utf-8", subject)
	encodedSenderName := mime.QEncoding.Encode("utf-8", m.cfg.SenderName)

	msgID := generateMessageID(m.cfg.Host)
	date := time.Now().Format(time.RFC1123Z)

	return fmt.Appendf(nil,
		"Message-ID: %s\r\n"+
			"Date: %s\r\n"+
			"To: %s\r\n"+
			"From: %s <%s>\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=\"utf-8\"\r\n"+
			"\r\n"+
			"%s",
		msgID, date, recipient, encodedSenderName, m.cfg.Username, encodedSubject, body,
	)
}
