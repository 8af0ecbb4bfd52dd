package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths_Default(t *testing.T) {
	t.Setenv("COLLIG_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".collig")
	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.json"), paths.Config)
	assert.Equal(t, filepath.Join(base, ".env"), paths.EnvFile)
	assert.Equal(t, filepath.Join(base, "sessions"), paths.Sessions)
	assert.Equal(t, filepath.Join(base, "logs"), paths.Logs)
}

func TestResolvePaths_CustomHome(t *testing.T) {
	t.Setenv("COLLIG_HOME", "/tmp/colligtest")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/colligtest", paths.Base)
	assert.Equal(t, "/tmp/colligtest/config.json", paths.Config)
	assert.Equal(t, "/tmp/colligtest/configs", paths.Configs)
	assert.Equal(t, "/tmp/colligtest/data", paths.Data)
	assert.Equal(t, "/tmp/colligtest/skills", paths.Skills)
	assert.Equal(t, "/tmp/colligtest/data/collig.db", paths.Database())
}

func TestEnsureDirs(t *testing.T) {
	paths := PathsAt(filepath.Join(t.TempDir(), "home"))

	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs())

	for _, dir := range []string{paths.Base, paths.Configs, paths.Data, paths.Sessions, paths.Logs, paths.Skills} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSkillDirs(t *testing.T) {
	paths := PathsAt(t.TempDir())

	dir, err := paths.SkillConfigDir(" Email ")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.Configs, "email"), dir)
	assert.DirExists(t, dir)

	dir, err = paths.SkillDataDir("News Reader")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.Data, "news_reader"), dir)
	assert.DirExists(t, dir)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"OPENAI_API_KEY", false},
		{"google_maps_api_key", false},
		{"", true},
		{"__proto__", true},
		{"constructor", true},
		{"HAS SPACE", true},
		{"A=B", true},
		{"quote\"d", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr {
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
