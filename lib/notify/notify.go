package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"utregister/lib/registrar"
	"utregister/lib/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("utregister.lib.notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type Config struct {
	Smtp SmtpConfig `json:"smtp"`
	To   []string   `json:"to"`
}

// Enabled reports whether there is anywhere to send mail to.
func (c Config) Enabled() bool {
	return c.Smtp.Server != "" && len(c.To) > 0
}

// Sender delivers a composed message, it is swapped out in tests.
type Sender func(addr string, auth smtp.Auth, mail *email.Email) error

func sendSmtp(addr string, auth smtp.Auth, mail *email.Email) error {
	return mail.Send(addr, auth)
}

type Mailer struct {
	config Config
	send   Sender
}

func NewMailer(config Config) Mailer {
	return Mailer{config: config, send: sendSmtp}
}

func (m Mailer) WithSender(send Sender) Mailer {
	m.send = send
	return m
}

func compose(attempt registrar.Attempt) (subject string, body string) {
	status := "succeeded"
	if attempt.Err != nil {
		status = "failed"
	}
	subject = fmt.Sprintf("[%s] %s %s", attempt.Term, attempt.Code, status)

	var b strings.Builder
	fmt.Fprintf(&b, "Term: %s (%s)\n", attempt.Term, attempt.Term.Code())
	fmt.Fprintf(&b, "Request: %s\n", attempt.Code)
	fmt.Fprintf(&b, "Time: %s\n", attempt.Time.Format("Mon Jan 2 15:04:05 MST 2006"))
	keys := make([]string, 0, len(attempt.Params))
	for key := range attempt.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s\n", key, attempt.Params[key])
	}
	b.WriteString("\n")
	if attempt.Err != nil {
		fmt.Fprintf(&b, "Error: %s\n", attempt.Err.Error())
	}
	if attempt.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", attempt.Message)
	}
	return subject, b.String()
}

// RecordAttempt mails the outcome of an action, so a Mailer can be used
// as a registrar.Recorder.
func (m Mailer) RecordAttempt(ctx context.Context, attempt registrar.Attempt) error {
	if !m.config.Enabled() {
		return nil
	}

	ctx, span := tracer.Start(ctx, "RecordAttempt")
	defer span.End()

	subject, body := compose(attempt)

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("utregister <%s>", m.config.Smtp.EmailAddress)
	mail.To = m.config.To
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.config.Smtp.Server, m.config.Smtp.Port)
	err := m.send(
		addr,
		smtp.PlainAuth("", m.config.Smtp.EmailAddress, m.config.Smtp.Password, m.config.Smtp.Server),
		mail,
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(addr, nil, mail)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

// Recorders fans an attempt out to every recorder, in order. Every
// recorder is called even when an earlier one fails.
type Recorders []registrar.Recorder

func (r Recorders) RecordAttempt(ctx context.Context, attempt registrar.Attempt) error {
	var errs []error
	for _, recorder := range r {
		if recorder == nil {
			continue
		}
		err := recorder.RecordAttempt(ctx, attempt)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
