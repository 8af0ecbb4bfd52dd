// Package browser opens URLs in the desktop browser.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/soyeahso/collig/internal/skill"
)

// DefaultURL is opened when no URL is given.
const DefaultURL = "http://google.com"

// ErrNoOpener is returned when the platform has no launcher installed.
var ErrNoOpener = errors.New("xdg-open not found. Please install xdg-utils")

// Opener launches a URL.
type Opener func(ctx context.Context, url string) error

// Skill is the Web Browser skill.
type Skill struct {
	skill.Base
	open Opener
}

// New creates the skill. A nil opener means Open.
func New(open Opener) *Skill {
	if open == nil {
		open = Open
	}
	return &Skill{
		Base: skill.Base{
			SkillName:        "Web Browser",
			SkillDescription: "Opens the web browser.",
			SkillTriggers:    []string{"open browser", "open the browser", "open website", "browse to"},
		},
		open: open,
	}
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{{
		Name:        "open_browser",
		Description: "Opens the default web browser to the specified URL.",
		Schema:      `{"type":"object","properties":{"url":{"type":"string","description":"The URL to open"}}}`,
		Fn: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				URL string `json:"url"`
			}
			if err := skill.DecodeArgs(args, &in); err != nil {
				return "", err
			}
			url := NormalizeURL(in.URL)
			if err := s.open(ctx, url); err != nil {
				if errors.Is(err, ErrNoOpener) {
					return "Error: " + err.Error() + ".", nil
				}
				return fmt.Sprintf("Failed to open browser: %v", err), nil
			}
			return "Browser opened to " + url, nil
		},
	}}
}

// NormalizeURL adds an https scheme to bare hosts and falls back to
// DefaultURL for empty input.
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return DefaultURL
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}

// Open launches url with the platform's handler.
func Open(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		if _, err := exec.LookPath("xdg-open"); err != nil {
			return ErrNoOpener
		}
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}

	out, err := cmd.CombinedOutput()
	msg := strings.TrimSpace(string(out))
	if err != nil {
		if msg != "" {
			return errors.New(msg)
		}
		return err
	}
	// xdg-open can exit 0 while reporting that nothing handled the URL.
	if strings.Contains(msg, "no method available") {
		return errors.New(msg)
	}
	return nil
}
