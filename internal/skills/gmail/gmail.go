// Package gmail reads the user's Gmail through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/soyeahso/collig/internal/config"
	"github.com/soyeahso/collig/internal/skill"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// KeyCredentialsFile is the config key naming the OAuth client JSON.
const KeyCredentialsFile = "gmail_credentials_file"

const maxBodyChars = 8000

// Skill is the Gmail skill.
type Skill struct {
	skill.Base
	cfg      config.Getter
	tokenDir string
	// endpoint overrides the API base URL.
	endpoint string
}

// New creates the skill. The token is read from tokenDir/token.json.
func New(cfg config.Getter, tokenDir string) *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:        "Gmail",
			SkillDescription: "Checks and reads Gmail messages using OAuth 2.0.",
			SkillTriggers:    []string{"gmail", "check my gmail", "unread gmail"},
			SkillConfig:      []string{KeyCredentialsFile},
		},
		cfg:      cfg,
		tokenDir: tokenDir,
	}
}

// TokenPath is where `collig auth gmail` saves the token.
func (s *Skill) TokenPath() string { return filepath.Join(s.tokenDir, TokenFile) }

func (s *Skill) service(ctx context.Context) (*gmailapi.Service, error) {
	creds, ok := s.cfg.Get(KeyCredentialsFile)
	if !ok {
		return nil, fmt.Errorf("please set '%s' to the path of your Google Cloud credentials.json first", KeyCredentialsFile)
	}
	oc, err := OAuthConfig(creds)
	if err != nil {
		return nil, err
	}
	tok, err := TokenFromFile(s.TokenPath())
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithHTTPClient(oc.Client(ctx, tok))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return svc, nil
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{
		{
			Name: "check_gmail",
			Description: "List recent Gmail messages. query uses Gmail search syntax, e.g. 'is:unread', " +
				"'from:user@example.com', 'subject:meeting'. Defaults to the inbox.",
			Schema: `{"type":"object","properties":{"query":{"type":"string"},"max_results":{"type":"integer","description":"Default 5, max 50"}}}`,
			Fn:     s.check,
		},
		{
			Name:        "read_gmail",
			Description: "Read the full content of a Gmail message by the ID shown in check_gmail.",
			Schema:      `{"type":"object","properties":{"message_id":{"type":"string"}},"required":["message_id"]}`,
			Fn:          s.read,
		},
	}
}

func header(part *gmailapi.MessagePart, name string) string {
	if part == nil {
		return ""
	}
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func (s *Skill) check(ctx context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Query      string `json:"query"`
		MaxResults int64  `json:"max_results"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 5
	}
	in.MaxResults = min(in.MaxResults, 50)

	svc, err := s.service(ctx)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	call := svc.Users.Messages.List("me").MaxResults(in.MaxResults).Context(ctx)
	if in.Query != "" {
		call = call.Q(in.Query)
	} else {
		call = call.LabelIds("INBOX")
	}
	r, err := call.Do()
	if err != nil {
		return fmt.Sprintf("Error fetching emails from Gmail: %v", err), nil
	}
	if len(r.Messages) == 0 {
		return "No new messages found.", nil
	}

	var entries []string
	for _, m := range r.Messages {
		detail, err := svc.Users.Messages.Get("me", m.Id).Format("metadata").
			MetadataHeaders("From", "Subject", "Date").Context(ctx).Do()
		if err != nil {
			continue
		}
		subject := header(detail.Payload, "Subject")
		if subject == "" {
			subject = "No Subject"
		}
		from := header(detail.Payload, "From")
		if from == "" {
			from = "Unknown"
		}
		entries = append(entries, fmt.Sprintf("- **%s** from %s (ID: %s)\n  _%s_", subject, from, m.Id, detail.Snippet))
	}
	return "Here are your latest emails:\n\n" + strings.Join(entries, "\n\n"), nil
}

func (s *Skill) read(ctx context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		MessageID string `json:"message_id"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	if in.MessageID == "" {
		return "Error: message_id is required", nil
	}
	svc, err := s.service(ctx)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	msg, err := svc.Users.Messages.Get("me", in.MessageID).Format("full").Context(ctx).Do()
	if err != nil {
		return fmt.Sprintf("Failed to read message: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Subject:** %s\n", header(msg.Payload, "Subject"))
	fmt.Fprintf(&b, "**From:** %s\n", header(msg.Payload, "From"))
	if d := header(msg.Payload, "Date"); d != "" {
		fmt.Fprintf(&b, "**Date:** %s\n", d)
	}
	body := extractBody(msg.Payload, "text/plain")
	if body == "" {
		body = extractBody(msg.Payload, "text/html")
	}
	if body == "" {
		body = msg.Snippet
	}
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars] + "\n... (truncated)"
	}
	b.WriteString("\n" + body)
	return b.String(), nil
}

// extractBody returns the first part of mimeType, depth first.
func extractBody(p *gmailapi.MessagePart, mimeType string) string {
	if p == nil {
		return ""
	}
	if p.MimeType == mimeType && p.Body != nil && p.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(p.Body.Data); err == nil {
			return string(data)
		}
		if data, err := base64.RawURLEncoding.DecodeString(p.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range p.Parts {
		if body := extractBody(part, mimeType); body != "" {
			return body
		}
	}
	return ""
}
