package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"crossarb/internal/models"
)

// EmailChannel доставляет уведомления по SMTP
type EmailChannel struct {
	server     string
	port       int
	from       string
	password   string
	recipients []string
}

// NewEmailChannel создает канал доставки по email
func NewEmailChannel(server string, port int, from, password string, recipients []string) *EmailChannel {
	return &EmailChannel{
		server:     server,
		port:       port,
		from:       from,
		password:   password,
		recipients: recipients,
	}
}

func (c *EmailChannel) Name() string {
	return "email"
}

// Send отправляет уведомление письмом всем получателям
func (c *EmailChannel) Send(n models.Notification) error {
	if len(c.recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(n.Severity), n.Type)

	var body strings.Builder
	body.WriteString("From: " + c.from + "\r\n")
	body.WriteString("To: " + strings.Join(c.recipients, ", ") + "\r\n")
	body.WriteString("Subject: " + subject + "\r\n")
	body.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	body.WriteString("\r\n")
	body.WriteString(n.Timestamp.Format("2006-01-02 15:04:05 MST") + "\r\n\r\n")
	body.WriteString(n.Message + "\r\n")

	addr := fmt.Sprintf("%s:%d", c.server, c.port)
	auth := smtp.PlainAuth("", c.from, c.password, c.server)

	if err := smtp.SendMail(addr, auth, c.from, c.recipients, []byte(body.String())); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}

	return nil
}
