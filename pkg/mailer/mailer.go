// Package mailer sends multipart (HTML + plain text) email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	cfg  Config
	auth smtp.Auth
	send sendFunc
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{cfg: cfg, auth: auth, send: smtp.SendMail}
}

// Send delivers msg. net/smtp has no context support, so ctx only bounds how
// long the caller waits.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	body, err := BuildMessage(m.cfg.From, msg, time.Now())
	if err != nil {
		return fmt.Errorf("build email: %w", err)
	}

	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, m.auth, m.cfg.From, []string{msg.To}, body)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("send email to %s: %w", msg.To, ctx.Err())
	case err := <-done:
		if err != nil {
			logrus.WithError(err).WithField("to", msg.To).Warn("email delivery failed")
			return fmt.Errorf("send email: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email sent")
	return nil
}

// BuildMessage renders msg as a multipart/alternative MIME message.
func BuildMessage(from string, msg Message, date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LogMailer only logs messages. It stands in for SMTP when email is disabled.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email delivery disabled, message logged")
	return nil
}
