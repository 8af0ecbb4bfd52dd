// Package email reads mail over IMAP and sends it over SMTP for accounts
// registered with setup_email.
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/soyeahso/collig/internal/logging"
	"github.com/soyeahso/collig/internal/skill"
)

// Skill is the Email Manager.
type Skill struct {
	skill.Base
	accounts *Accounts
	dial     Dialer
	send     SendFunc
	now      func() time.Time
	log      *logging.Logger
}

// New creates the skill with account files stored in dir.
func New(dir string, log *logging.Logger) *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:        "Email Manager",
			SkillDescription: "Checks, searches, reads and sends email over IMAP/SMTP.",
			SkillTriggers:    []string{"check email", "check my inbox", "read email", "send email", "search emails", "setup email"},
		},
		accounts: NewAccounts(dir),
		dial:     dialTLS,
		send:     smtp.SendMail,
		now:      time.Now,
		log:      log.Sub("email"),
	}
}

type toolArgs struct {
	Account     string   `json:"account"`
	Mailbox     string   `json:"mailbox"`
	Limit       int      `json:"limit"`
	Query       string   `json:"query"`
	SeqNum      uint32   `json:"seq_num"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	IMAPServer  string   `json:"imap_server"`
	IMAPPort    string   `json:"imap_port"`
	SMTPServer  string   `json:"smtp_server"`
	SMTPPort    string   `json:"smtp_port"`
	To          string   `json:"to"`
	Cc          string   `json:"cc"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	IsHTML      bool     `json:"is_html"`
	Attachments []string `json:"attachments"`
}

func (s *Skill) Tools() []skill.Tool {
	account := `"account":{"type":"string","description":"Email address of the account (optional when only one is configured)"}`
	mailbox := `"mailbox":{"type":"string","description":"Mailbox name (default INBOX)"}`
	return []skill.Tool{
		{
			Name: "setup_email",
			Description: "Register an email account. Server names are filled in for Gmail, iCloud, Outlook, Yahoo and Fastmail. " +
				"Use an app-specific password where the provider requires one.",
			Schema: `{"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"},` +
				`"imap_server":{"type":"string"},"imap_port":{"type":"string"},"smtp_server":{"type":"string"},"smtp_port":{"type":"string"}},` +
				`"required":["email","password"]}`,
			Fn: s.wrap(s.setup),
		},
		{
			Name:        "check_inbox",
			Description: "List the most recent messages, newest first.",
			Schema:      `{"type":"object","properties":{` + account + `,` + mailbox + `,"limit":{"type":"integer","description":"Default 10, max 100"}}}`,
			Fn:          s.wrap(s.checkInbox),
		},
		{
			Name: "search_emails",
			Description: "Search messages. Use \"FROM address\", \"SUBJECT words\", \"UNSEEN\" or \"SEEN\"; " +
				"anything else is a full-text search.",
			Schema: `{"type":"object","properties":{` + account + `,` + mailbox + `,"query":{"type":"string"},"limit":{"type":"integer"}},"required":["query"]}`,
			Fn:     s.wrap(s.searchEmails),
		},
		{
			Name:        "read_email",
			Description: "Read one message by the Seq number shown in check_inbox or search_emails.",
			Schema:      `{"type":"object","properties":{` + account + `,` + mailbox + `,"seq_num":{"type":"integer"}},"required":["seq_num"]}`,
			Fn:          s.wrap(s.readEmail),
		},
		{
			Name:        "send_email",
			Description: "Send an email. to and cc are comma-separated lists. attachments are local file paths.",
			Schema: `{"type":"object","properties":{` + account + `,"to":{"type":"string"},"cc":{"type":"string"},"subject":{"type":"string"},` +
				`"body":{"type":"string"},"is_html":{"type":"boolean"},"attachments":{"type":"array","items":{"type":"string"}}},` +
				`"required":["to","subject","body"]}`,
			Fn:      s.wrap(s.sendEmail),
			Timeout: 2 * time.Minute,
		},
	}
}

func (s *Skill) wrap(op func(toolArgs) (string, error)) skill.ToolFunc {
	return func(_ context.Context, raw json.RawMessage) (string, error) {
		var in toolArgs
		if err := skill.DecodeArgs(raw, &in); err != nil {
			return "", err
		}
		if in.Mailbox == "" {
			in.Mailbox = "INBOX"
		}
		if in.Limit <= 0 {
			in.Limit = 10
		}
		in.Limit = min(in.Limit, 100)
		out, err := op(in)
		if err != nil {
			s.log.Warn().Err(err).Msg("email tool failed")
			return "Error: " + err.Error(), nil
		}
		return out, nil
	}
}

func (s *Skill) setup(in toolArgs) (string, error) {
	a := Account{
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
		IMAPHost: in.IMAPServer,
		IMAPPort: in.IMAPPort,
		SMTPHost: in.SMTPServer,
		SMTPPort: in.SMTPPort,
	}
	if a.Email == "" || a.Password == "" {
		return "", fmt.Errorf("email and password are required")
	}
	if err := a.applyPreset(); err != nil {
		return "", err
	}
	if err := s.accounts.Save(a); err != nil {
		return "", fmt.Errorf("failed to save account: %w", err)
	}
	if err := s.Verify(a); err != nil {
		return fmt.Sprintf("Email account %s saved, but the IMAP login to %s failed: %v", a.Email, a.imapAddr(), err), nil
	}
	return fmt.Sprintf("Email account %s saved and verified (IMAP %s, SMTP %s).", a.Email, a.imapAddr(), a.smtpAddr()), nil
}

func formatSummaries(list []Summary) string {
	var b strings.Builder
	for i, m := range list {
		flags := ""
		if m.Seen {
			flags = "[READ] "
		}
		fmt.Fprintf(&b, "%d. %sSeq: %d, UID: %d\n", i+1, flags, m.SeqNum, m.UID)
		fmt.Fprintf(&b, "   From: %s\n", m.From)
		fmt.Fprintf(&b, "   Subject: %s\n", m.Subject)
		fmt.Fprintf(&b, "   Date: %s\n\n", m.Date.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func (s *Skill) checkInbox(in toolArgs) (string, error) {
	a, err := s.accounts.Resolve(in.Account)
	if err != nil {
		return "", err
	}
	list, err := s.Recent(a, in.Mailbox, in.Limit)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "No messages found in mailbox.", nil
	}
	return formatSummaries(list) + fmt.Sprintf("Total: %d message(s)", len(list)), nil
}

func (s *Skill) searchEmails(in toolArgs) (string, error) {
	if strings.TrimSpace(in.Query) == "" {
		return "", fmt.Errorf("query is required")
	}
	a, err := s.accounts.Resolve(in.Account)
	if err != nil {
		return "", err
	}
	list, err := s.Search(a, in.Mailbox, in.Query, in.Limit)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "No messages found matching the search criteria.", nil
	}
	return fmt.Sprintf("Found %d message(s):\n\n", len(list)) + strings.TrimRight(formatSummaries(list), "\n"), nil
}

func (s *Skill) readEmail(in toolArgs) (string, error) {
	if in.SeqNum == 0 {
		return "", fmt.Errorf("seq_num is required")
	}
	a, err := s.accounts.Resolve(in.Account)
	if err != nil {
		return "", err
	}
	msg, err := s.Read(a, in.Mailbox, in.SeqNum)
	if err != nil {
		return "", err
	}
	body := msg.Body
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars] + "\n... (truncated)"
	}
	var b strings.Builder
	b.WriteString("=== Email Message ===\n\n")
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\n\n", msg.Date.Format("2006-01-02 15:04"))
	b.WriteString("=== Body ===\n")
	b.WriteString(body)
	return b.String(), nil
}

func (s *Skill) sendEmail(in toolArgs) (string, error) {
	if in.To == "" || in.Subject == "" || in.Body == "" {
		return "", fmt.Errorf("to, subject and body are required")
	}
	a, err := s.accounts.Resolve(in.Account)
	if err != nil {
		return "", err
	}
	err = s.Send(a, Outgoing{
		To:          in.To,
		Cc:          in.Cc,
		Subject:     in.Subject,
		Body:        in.Body,
		HTML:        in.IsHTML,
		Attachments: in.Attachments,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	s.log.Info().Str("to", in.To).Msg("email sent")
	return "Email sent successfully to " + in.To, nil
}
