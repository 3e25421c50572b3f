package outreach

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Message is one composed communication.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Channel delivers messages. Configured reports whether credentials are
// present; an unconfigured channel is never asked to deliver.
type Channel interface {
	Name() string
	Configured() bool
	Deliver(ctx context.Context, msg Message) error
}

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

// SMTPChannel delivers plain-text mail over SMTP with STARTTLS.
type SMTPChannel struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPChannel creates an SMTP channel.
func NewSMTPChannel(cfg SMTPConfig) *SMTPChannel {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPChannel{cfg: cfg, send: smtp.SendMail}
}

// Name returns the channel identifier.
func (c *SMTPChannel) Name() string { return "smtp" }

// Configured reports whether both username and password are set.
func (c *SMTPChannel) Configured() bool {
	return c.cfg.Username != "" && c.cfg.Password != ""
}

// Deliver sends msg. The context only gates the start; net/smtp has no
// cancellation.
func (c *SMTPChannel) Deliver(ctx context.Context, msg Message) error {
	if !c.Configured() {
		return errors.New("smtp credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	if err := c.send(addr, auth, c.cfg.Username, []string{msg.To}, c.render(msg)); err != nil {
		return errors.Wrapf(err, "smtp send to %s", msg.To)
	}
	return nil
}

func (c *SMTPChannel) render(msg Message) []byte {
	from := c.cfg.Username
	if c.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", c.cfg.FromName, c.cfg.Username)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
