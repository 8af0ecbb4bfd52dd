// Package system reports agent status, clears conversations and installs
// packages.
package system

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/soyeahso/collig/internal/skill"
)

// SessionClearer empties a session's history.
type SessionClearer interface {
	ClearSession(ctx context.Context, sessionID string) error
}

// Runner executes a command and returns its stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// Skill is the System Info skill.
type Skill struct {
	skill.Base
	sessions SessionClearer
	started  time.Time
	now      func() time.Time
	goos     string
	run      Runner
}

// New creates the skill. sessions may be nil, in which case
// clear_conversation reports an error.
func New(sessions SessionClearer) *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:        "System Info",
			SkillDescription: "Provides information about the system status and agent configuration.",
			SkillTriggers:    []string{"system status", "uptime", "clear conversation", "start over", "install package"},
		},
		sessions: sessions,
		started:  time.Now(),
		now:      time.Now,
		goos:     runtime.GOOS,
		run:      execRunner,
	}
}

func execRunner(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{
		{
			Name:        "get_system_status",
			Description: "Returns the current system status and uptime.",
			Schema:      skill.EmptySchema,
			Fn: func(context.Context, json.RawMessage) (string, error) {
				uptime := s.now().Sub(s.started).Truncate(time.Second)
				return fmt.Sprintf("System Status: Online\nUptime: %s\nPlatform: %s/%s", uptime, s.goos, runtime.GOARCH), nil
			},
		},
		{
			Name: "clear_conversation",
			Description: "Clears the current conversation history. Use this when the user asks to \"delete conversation\", " +
				"\"clean history\", or \"start over\". Pass the id from the \"Current Session ID\" system message.",
			Schema: `{"type":"object","properties":{"session_id":{"type":"string"}}}`,
			Fn:     s.clearConversation,
		},
		{
			Name:        "install_package",
			Description: "Installs a system package using apt-get (requires sudo). Use this to install missing software.",
			Schema:      `{"type":"object","properties":{"package_name":{"type":"string"}},"required":["package_name"]}`,
			Timeout:     5 * time.Minute,
			Fn:          s.installPackage,
		},
	}
}

func (s *Skill) clearConversation(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		SessionID string `json:"session_id"`
	}
	if err := skill.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	id := strings.TrimSpace(in.SessionID)
	if id == "" {
		id = skill.SessionFrom(ctx)
	}
	if id == "" {
		return "Error: Session ID is required to clear conversation.", nil
	}
	if s.sessions == nil {
		return "Failed to clear conversation: no session store", nil
	}
	if err := s.sessions.ClearSession(ctx, id); err != nil {
		return fmt.Sprintf("Failed to clear conversation: %v", err), nil
	}
	return "Conversation history has been cleared.", nil
}

func (s *Skill) installPackage(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		PackageName string `json:"package_name"`
	}
	if err := skill.DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if s.goos != "linux" {
		return "Error: Package installation is only supported on Linux.", nil
	}
	pkg := strings.TrimSpace(in.PackageName)
	if pkg == "" || strings.HasPrefix(pkg, "-") || strings.ContainsAny(pkg, " \t;|&") {
		return fmt.Sprintf("Error: invalid package name %q.", in.PackageName), nil
	}

	stdout, stderr, err := s.run(ctx, "sudo", "apt-get", "install", "-y", pkg)
	if err != nil {
		return fmt.Sprintf("Failed to install %s.\nError: %s\nOutput: %s", pkg, strings.TrimSpace(stderr), stdout), nil
	}
	return fmt.Sprintf("Successfully installed %s.\nOutput: %s", pkg, stdout), nil
}
