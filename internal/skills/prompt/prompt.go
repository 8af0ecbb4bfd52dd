// Package prompt turns SKILL.md files into executors whose behaviour is a
// system prompt handed to the active model.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soyeahso/collig/internal/logging"
	"github.com/soyeahso/collig/internal/skill"
)

// FileName is the file a prompt skill directory must contain.
const FileName = "SKILL.md"

const defaultDescription = "No description provided."

// Completer runs a single tool-less completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Metadata is the YAML frontmatter of a SKILL.md.
type Metadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Triggers    []string `yaml:"triggers"`
	Homepage    string   `yaml:"homepage"`
}

// Skill is a prompt-backed executor.
type Skill struct {
	skill.Base
	Path    string
	Content string
	llm     Completer
}

// New builds a prompt skill from parsed metadata and its prompt body.
func New(meta Metadata, content string, llm Completer) *Skill {
	desc := strings.TrimSpace(meta.Description)
	if desc == "" {
		desc = defaultDescription
	}
	triggers := meta.Triggers
	if len(triggers) == 0 {
		triggers = strings.Fields(strings.ToLower(meta.Name))
	}
	return &Skill{
		Base: skill.Base{
			SkillName:        strings.TrimSpace(meta.Name),
			SkillDescription: desc,
			SkillTriggers:    triggers,
		},
		Content: content,
		llm:     llm,
	}
}

// Execute sends the user's message with the skill body as system prompt.
func (s *Skill) Execute(ctx context.Context, c skill.Context) (skill.Result, error) {
	if s.llm == nil {
		return skill.Errorf("Error executing skill '%s': no model configured", s.Name()), nil
	}
	out, err := s.llm.Complete(ctx, s.Content, c.Message())
	if err != nil {
		return skill.Errorf("Error executing skill '%s': %v", s.Name(), err), nil
	}
	return skill.Result{Response: out, Action: skill.ActionPromptResponse}, nil
}

// Load reads every <dir>/<name>/SKILL.md. A missing dir yields no skills.
// Files that fail to parse are logged and skipped.
func Load(dir string, llm Completer, log *logging.Logger) ([]*Skill, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading skills directory: %w", err)
	}

	var skills []*Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name(), FileName)
		if _, err := os.Stat(path); err != nil {
			log.Debug().Str("dir", entry.Name()).Msg("skipping: no SKILL.md")
			continue
		}
		s, err := LoadFile(path, llm)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to load prompt skill")
			continue
		}
		skills = append(skills, s)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name() < skills[j].Name() })
	log.Debug().Int("count", len(skills)).Msg("prompt skills loaded")
	return skills, nil
}

// LoadFile parses one SKILL.md.
func LoadFile(path string, llm Completer) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skill file: %w", err)
	}
	meta, body, err := parseFrontmatter(string(content))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(meta.Name) == "" {
		return nil, errors.New("skill name is required")
	}
	s := New(meta, body, llm)
	s.Path = path
	return s, nil
}

func parseFrontmatter(content string) (Metadata, string, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "---" {
		return Metadata{}, "", errors.New("no frontmatter found")
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return Metadata{}, "", errors.New("unclosed frontmatter")
	}

	var meta Metadata
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &meta); err != nil {
		return Metadata{}, "", fmt.Errorf("failed to parse YAML: %w", err)
	}
	body := strings.TrimSpace(strings.Join(lines[end+1:], "\n"))
	return meta, body, nil
}
