package config

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultBaseDir = ".collig"

// Paths holds resolved filesystem paths for Collig data.
type Paths struct {
	Base     string // ~/.collig
	Config   string // ~/.collig/config.json
	EnvFile  string // ~/.collig/.env
	Configs  string // ~/.collig/configs
	Data     string // ~/.collig/data
	Sessions string // ~/.collig/sessions
	Logs     string // ~/.collig/logs
	Skills   string // ~/.collig/skills
}

// ResolvePaths computes all standard paths from the home directory.
// If COLLIG_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("COLLIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}
	return PathsAt(base), nil
}

// PathsAt lays out the standard tree under base.
func PathsAt(base string) Paths {
	return Paths{
		Base:     base,
		Config:   filepath.Join(base, "config.json"),
		EnvFile:  filepath.Join(base, ".env"),
		Configs:  filepath.Join(base, "configs"),
		Data:     filepath.Join(base, "data"),
		Sessions: filepath.Join(base, "sessions"),
		Logs:     filepath.Join(base, "logs"),
		Skills:   filepath.Join(base, "skills"),
	}
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Configs, p.Data, p.Sessions, p.Logs, p.Skills}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// Database is the SQLite file backing notes, bookmarks and the profile.
func (p Paths) Database() string {
	return filepath.Join(p.Data, "collig.db")
}

// SkillConfigDir returns (and creates) the per-skill configuration directory.
func (p Paths) SkillConfigDir(skill string) (string, error) {
	dir := filepath.Join(p.Configs, cleanSkillName(skill))
	return dir, os.MkdirAll(dir, 0o700)
}

// SkillDataDir returns (and creates) the per-skill data directory.
func (p Paths) SkillDataDir(skill string) (string, error) {
	dir := filepath.Join(p.Data, cleanSkillName(skill))
	return dir, os.MkdirAll(dir, 0o700)
}

func cleanSkillName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// blockedKeys are keys that must never be written to the config file.
var blockedKeys = map[string]bool{
	"__proto__":   true,
	"prototype":   true,
	"constructor": true,
}

// ValidateKey rejects keys that cannot round-trip through config.json and .env.
func ValidateKey(key string) error {
	if key == "" {
		return &ConfigError{Message: "empty config key"}
	}
	if blockedKeys[key] {
		return &ConfigError{Message: "config key is blocked: " + key}
	}
	if strings.ContainsAny(key, " \t\r\n=#\"'") {
		return &ConfigError{Message: "config key contains invalid characters: " + key}
	}
	return nil
}
