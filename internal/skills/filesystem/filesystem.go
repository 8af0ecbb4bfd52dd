// Package filesystem gives the model basic file and directory operations.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/soyeahso/collig/internal/skill"
)

const (
	// maxReadBytes caps what read_file returns to the model.
	maxReadBytes = 256 << 10
	// maxSearchResults caps search_files output.
	maxSearchResults = 200
)

// Skill is the File System manager.
type Skill struct {
	skill.Base
	// cwd resolves relative paths; empty means the process working dir.
	cwd string
}

// New creates the skill.
func New() *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:        "File System",
			SkillDescription: "Manages files and directories (create, list, search, read, write, delete).",
			SkillTriggers:    []string{"file", "folder", "directory", "create a file", "list files"},
		},
	}
}

func (s *Skill) resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "."
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if !filepath.IsAbs(path) && s.cwd != "" {
		path = filepath.Join(s.cwd, path)
	}
	return filepath.Abs(path)
}

type pathArgs struct {
	Path    string `json:"path"`
	Pattern string `json:"pattern"`
	Content string `json:"content"`
}

func (s *Skill) Tools() []skill.Tool {
	pathOnly := `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`
	return []skill.Tool{
		{
			Name:        "create_directory",
			Description: "Creates a new directory (and any missing parents) at the specified path.",
			Schema:      pathOnly,
			Fn:          s.wrap("creating directory", s.createDirectory),
		},
		{
			Name:        "list_directory",
			Description: "Lists the contents of a directory. Defaults to the current working directory. An optional glob pattern (e.g. \"*.go\") filters entry names.",
			Schema:      `{"type":"object","properties":{"path":{"type":"string"},"pattern":{"type":"string"}}}`,
			Fn:          s.wrap("listing directory", s.listDirectory),
		},
		{
			Name:        "search_files",
			Description: "Recursively finds files under path whose relative path matches a glob pattern. Use '**/*.ext' to search all subdirectories.",
			Schema:      `{"type":"object","properties":{"path":{"type":"string"},"pattern":{"type":"string"}},"required":["pattern"]}`,
			Fn:          s.wrap("searching files", s.searchFiles),
		},
		{
			Name:        "delete_item",
			Description: "Deletes a file or directory (recursively).",
			Schema:      pathOnly,
			Fn:          s.wrap("deleting item", s.deleteItem),
		},
		{
			Name:        "write_file",
			Description: "Writes content to a file, creating parent directories. Overwrites an existing file.",
			Schema:      `{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`,
			Fn:          s.wrap("writing file", s.writeFile),
		},
		{
			Name:        "read_file",
			Description: "Reads the text content of a file.",
			Schema:      pathOnly,
			Fn:          s.wrap("reading file", s.readFile),
		},
	}
}

// wrap decodes arguments and turns operation errors into the text the
// model sees, so one bad path never aborts the turn.
func (s *Skill) wrap(what string, op func(pathArgs) (string, error)) skill.ToolFunc {
	return func(_ context.Context, raw json.RawMessage) (string, error) {
		var in pathArgs
		if err := skill.DecodeArgs(raw, &in); err != nil {
			return "", err
		}
		out, err := op(in)
		if err != nil {
			return fmt.Sprintf("Error %s: %v", what, err), nil
		}
		return out, nil
	}
}

func (s *Skill) createDirectory(in pathArgs) (string, error) {
	path, err := s.resolve(in.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return "Directory created successfully at: " + path, nil
}

func (s *Skill) listDirectory(in pathArgs) (string, error) {
	path, err := s.resolve(in.Path)
	if err != nil {
		return "", err
	}
	var filter glob.Glob
	if in.Pattern != "" {
		if filter, err = glob.Compile(in.Pattern); err != nil {
			return "", fmt.Errorf("invalid pattern %q: %w", in.Pattern, err)
		}
	}

	entries, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "Path does not exist: " + path, nil
	}
	if err != nil {
		return "", err
	}

	var names []string
	for _, e := range entries {
		if filter != nil && !filter.Match(e.Name()) {
			continue
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		if filter != nil {
			return fmt.Sprintf("No entries in %s match %q", path, in.Pattern), nil
		}
		return "Directory is empty: " + path, nil
	}
	sort.Strings(names)
	return fmt.Sprintf("Contents of %s:\n%s", path, strings.Join(names, "\n")), nil
}

func (s *Skill) searchFiles(in pathArgs) (string, error) {
	root, err := s.resolve(in.Path)
	if err != nil {
		return "", err
	}
	if in.Pattern == "" {
		return "", errors.New("pattern is required")
	}
	g, err := glob.Compile(in.Pattern, '/')
	if err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", in.Pattern, err)
	}

	var matches []string
	truncated := false
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			return nil
		}
		if g.Match(filepath.ToSlash(rel)) {
			if len(matches) == maxSearchResults {
				truncated = true
				return filepath.SkipAll
			}
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "No matches found", nil
	}
	out := strings.Join(matches, "\n")
	if truncated {
		out += fmt.Sprintf("\n(showing first %d matches)", maxSearchResults)
	}
	return out, nil
}

func (s *Skill) deleteItem(in pathArgs) (string, error) {
	if strings.TrimSpace(in.Path) == "" {
		return "", errors.New("path is required")
	}
	path, err := s.resolve(in.Path)
	if err != nil {
		return "", err
	}
	if path == filepath.Dir(path) {
		return "", errors.New("refusing to delete the filesystem root")
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "Path does not exist: " + path, nil
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		if err := os.RemoveAll(path); err != nil {
			return "", err
		}
		return "Directory deleted: " + path, nil
	}
	if err := os.Remove(path); err != nil {
		return "", err
	}
	return "File deleted: " + path, nil
}

func (s *Skill) writeFile(in pathArgs) (string, error) {
	path, err := s.resolve(in.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
		return "", err
	}
	return "Successfully wrote to file: " + path, nil
}

func (s *Skill) readFile(in pathArgs) (string, error) {
	path, err := s.resolve(in.Path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "File does not exist: " + path, nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, maxReadBytes+1)
	n, err := f.Read(buf)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return "", err
	}
	if n > maxReadBytes {
		return string(buf[:maxReadBytes]) + "\n... (truncated)", nil
	}
	return string(buf[:n]), nil
}
