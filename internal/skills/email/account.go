package email

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoAccount means setup_email has never been run.
var ErrNoAccount = errors.New("no email account configured. Use the 'setup_email' tool to add one")

// Account is one mailbox's connection settings. The JSON keys match the
// files written by earlier Collig releases.
type Account struct {
	Email    string `json:"EMAIL_ADDRESS"`
	Password string `json:"EMAIL_PASSWORD"`
	IMAPHost string `json:"IMAP_SERVER"`
	IMAPPort string `json:"IMAP_PORT,omitempty"`
	SMTPHost string `json:"SMTP_SERVER"`
	SMTPPort string `json:"SMTP_PORT,omitempty"`
}

func (a Account) imapAddr() string {
	port := a.IMAPPort
	if port == "" {
		port = "993"
	}
	return a.IMAPHost + ":" + port
}

func (a Account) smtpAddr() string {
	port := a.SMTPPort
	if port == "" {
		port = "587"
	}
	return a.SMTPHost + ":" + port
}

type preset struct{ imap, smtp string }

// presets fill in server names for well-known providers.
var presets = map[string]preset{
	"gmail.com":      {"imap.gmail.com", "smtp.gmail.com"},
	"googlemail.com": {"imap.gmail.com", "smtp.gmail.com"},
	"icloud.com":     {"imap.mail.me.com", "smtp.mail.me.com"},
	"me.com":         {"imap.mail.me.com", "smtp.mail.me.com"},
	"mac.com":        {"imap.mail.me.com", "smtp.mail.me.com"},
	"outlook.com":    {"outlook.office365.com", "smtp.office365.com"},
	"hotmail.com":    {"outlook.office365.com", "smtp.office365.com"},
	"live.com":       {"outlook.office365.com", "smtp.office365.com"},
	"yahoo.com":      {"imap.mail.yahoo.com", "smtp.mail.yahoo.com"},
	"fastmail.com":   {"imap.fastmail.com", "smtp.fastmail.com"},
}

// applyPreset fills empty hosts from the address's domain.
func (a *Account) applyPreset() error {
	if a.IMAPHost != "" && a.SMTPHost != "" {
		return nil
	}
	_, domain, ok := strings.Cut(a.Email, "@")
	if !ok {
		return fmt.Errorf("invalid email address %q", a.Email)
	}
	p, ok := presets[strings.ToLower(domain)]
	if !ok {
		return fmt.Errorf("unknown provider %q: imap_server and smtp_server are required", domain)
	}
	if a.IMAPHost == "" {
		a.IMAPHost = p.imap
	}
	if a.SMTPHost == "" {
		a.SMTPHost = p.smtp
	}
	return nil
}

// Accounts persists one JSON file per account in a directory.
type Accounts struct {
	dir string
}

func NewAccounts(dir string) *Accounts { return &Accounts{dir: dir} }

func fileName(email string) string {
	r := strings.NewReplacer("@", "_at_", "/", "_", "\\", "_", "..", "_")
	return r.Replace(strings.ToLower(strings.TrimSpace(email))) + ".json"
}

// Save writes a, readable only by the owner since it holds a password.
func (s *Accounts) Save(a Account) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, fileName(a.Email)), data, 0o600)
}

// List returns every readable account sorted by address.
func (s *Accounts) List() ([]Account, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Account
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var a Account
		if json.Unmarshal(data, &a) != nil || a.Email == "" {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Resolve picks the account for email. An empty email is allowed only
// while exactly one account exists.
func (s *Accounts) Resolve(email string) (Account, error) {
	all, err := s.List()
	if err != nil {
		return Account{}, err
	}
	if len(all) == 0 {
		return Account{}, ErrNoAccount
	}
	if email == "" {
		if len(all) == 1 {
			return all[0], nil
		}
		names := make([]string, len(all))
		for i, a := range all {
			names[i] = a.Email
		}
		return Account{}, fmt.Errorf("several accounts are configured (%s); say which one to use", strings.Join(names, ", "))
	}
	for _, a := range all {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("no configuration found for email: %s", email)
}
