package email

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Outgoing is a message to send.
type Outgoing struct {
	To          string
	Cc          string
	Subject     string
	Body        string
	HTML        bool
	Attachments []string
}

func splitAddrs(list string) []string {
	var out []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// compose renders m as an RFC 5322 message.
func compose(from string, m Outgoing, now time.Time) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	if m.Cc != "" {
		fmt.Fprintf(&b, "Cc: %s\r\n", m.Cc)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")

	contentType := "text/plain; charset=UTF-8"
	if m.HTML {
		contentType = "text/html; charset=UTF-8"
	}

	if len(m.Attachments) == 0 {
		fmt.Fprintf(&b, "Content-Type: %s\r\n\r\n%s", contentType, m.Body)
		return []byte(b.String()), nil
	}

	boundary := fmt.Sprintf("collig_%d", now.UnixNano())
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: %s\r\n\r\n%s\r\n\r\n", boundary, contentType, m.Body)
	for _, path := range m.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", path, err)
		}
		name := filepath.Base(path)
		mimeType := mime.TypeByExtension(filepath.Ext(name))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", mimeType)
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", name)
		b.WriteString(base64.StdEncoding.EncodeToString(data))
		b.WriteString("\r\n\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String()), nil
}

// Send delivers m through the account's SMTP server.
func (s *Skill) Send(a Account, m Outgoing) error {
	rcpts := append(splitAddrs(m.To), splitAddrs(m.Cc)...)
	if len(rcpts) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	msg, err := compose(a.Email, m, s.now())
	if err != nil {
		return err
	}
	auth := smtp.PlainAuth("", a.Email, a.Password, a.SMTPHost)
	return s.send(a.smtpAddr(), auth, a.Email, rcpts, msg)
}
