// Package app wires Collig's components into one explicit application
// context that the CLI commands share.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/soyeahso/collig/internal/agent"
	"github.com/soyeahso/collig/internal/config"
	"github.com/soyeahso/collig/internal/hooks"
	"github.com/soyeahso/collig/internal/llm"
	"github.com/soyeahso/collig/internal/logging"
	"github.com/soyeahso/collig/internal/session"
	"github.com/soyeahso/collig/internal/skill"
	"github.com/soyeahso/collig/internal/skills/bookmarks"
	"github.com/soyeahso/collig/internal/skills/browser"
	"github.com/soyeahso/collig/internal/skills/datecalc"
	"github.com/soyeahso/collig/internal/skills/email"
	"github.com/soyeahso/collig/internal/skills/filesystem"
	"github.com/soyeahso/collig/internal/skills/gitops"
	"github.com/soyeahso/collig/internal/skills/gmail"
	"github.com/soyeahso/collig/internal/skills/maps"
	"github.com/soyeahso/collig/internal/skills/news"
	"github.com/soyeahso/collig/internal/skills/notes"
	"github.com/soyeahso/collig/internal/skills/profile"
	"github.com/soyeahso/collig/internal/skills/prompt"
	"github.com/soyeahso/collig/internal/skills/setup"
	"github.com/soyeahso/collig/internal/skills/system"
	"github.com/soyeahso/collig/internal/skills/timeinfo"
	"github.com/soyeahso/collig/internal/skills/weather"
	"github.com/soyeahso/collig/internal/store"
)

// ProfileLocationKey is the profile attribute used as a default route origin.
const ProfileLocationKey = "location"

// Options configures New. Zero values pick production defaults.
type Options struct {
	Paths config.Paths
	Log   *logging.Logger
	// Opener launches URLs for the browser skill.
	Opener browser.Opener
	// HTTPClient is shared by the HTTP-backed skills.
	HTTPClient *http.Client
	// Providers overrides how provider clients are built.
	Providers agent.RegistryFactory
	// Database overrides Paths.Database(), e.g. ":memory:".
	Database string
}

// App holds every long-lived component.
type App struct {
	Paths      config.Paths
	Config     *config.Store
	Log        *logging.Logger
	Hooks      *hooks.Manager
	DB         *store.DB
	Sessions   *session.FileStore
	Skills     *skill.Registry
	States     *skill.StateStore
	Agent      *agent.Agent
	Notes      *store.NoteStore
	Bookmarks  *store.BookmarkStore
	Profile    *store.ProfileStore
	Classifier *skill.LLMClassifier
}

// New builds the application. The caller must Close it.
func New(opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	p := opts.Paths
	if p.Base == "" {
		resolved, err := config.ResolvePaths()
		if err != nil {
			return nil, fmt.Errorf("resolving paths: %w", err)
		}
		p = resolved
	}
	if err := p.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	cfg, err := config.OpenStore(p, log)
	if err != nil {
		return nil, err
	}
	if err := config.LoadEnvFile(p.EnvFile); err != nil {
		log.Warn().Err(err).Str("path", p.EnvFile).Msg("failed to load .env")
	}
	cfg.ExportAPIKeys()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = p.Database()
	}
	db, err := store.Open(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sessions, err := session.NewFileStore(p.Sessions, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &App{
		Paths:     p,
		Config:    cfg,
		Log:       log,
		Hooks:     hooks.NewManager(log),
		DB:        db,
		Sessions:  sessions,
		Skills:    skill.NewRegistry(nil, log),
		States:    skill.NewStateStore(0),
		Notes:     store.NewNoteStore(db),
		Bookmarks: store.NewBookmarkStore(db),
		Profile:   store.NewProfileStore(db),
	}

	a.Agent = agent.New(agent.Options{
		Skills:    a.Skills,
		Sessions:  sessions,
		States:    a.States,
		Config:    cfg,
		Hooks:     a.Hooks,
		Log:       log,
		Providers: opts.Providers,
	})

	if err := a.registerSkills(opts); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.configureClassifier(); err != nil {
		a.Close()
		return nil, err
	}

	log.Debug().
		Str("base", p.Base).
		Int("skills", len(a.Skills.Skills())).
		Msg("application initialized")
	return a, nil
}

func (a *App) registerSkills(opts Options) error {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	settings := a.Settings()

	emailDir, err := a.Paths.SkillConfigDir("email")
	if err != nil {
		return fmt.Errorf("email config dir: %w", err)
	}
	gmailDir, err := a.Paths.SkillConfigDir("gmail")
	if err != nil {
		return fmt.Errorf("gmail config dir: %w", err)
	}

	// Executors come first so their triggers win keyword dispatch.
	a.Skills.Register(setup.New(a.Config))
	a.Skills.Register(maps.New(a.Config, httpClient, a.homeLocation))

	a.Skills.Register(system.New(a.Agent))
	a.Skills.Register(timeinfo.New())
	a.Skills.Register(datecalc.New())
	a.Skills.Register(weather.New(httpClient))
	a.Skills.Register(news.New(a.Config, httpClient))
	a.Skills.Register(browser.New(opts.Opener))
	a.Skills.Register(filesystem.New())
	a.Skills.Register(notes.New(a.Notes))
	a.Skills.Register(bookmarks.New(a.Bookmarks))
	a.Skills.Register(profile.New(a.Profile))
	a.Skills.Register(gitops.New(settings.GitAllowedRoots))
	a.Skills.Register(email.New(emailDir, a.Log))
	a.Skills.Register(gmail.New(a.Config, gmailDir))

	prompts, err := prompt.Load(a.Paths.Skills, a.Agent, a.Log.Sub("prompt"))
	if err != nil {
		a.Log.Warn().Err(err).Msg("failed to load prompt skills")
	}
	for _, s := range prompts {
		a.Skills.Register(s)
	}
	return nil
}

// configureClassifier installs the LLM classifier. SKILL_CLASSIFIER is
// read on every dispatch: llm asks the summary model with keyword
// fallback, keyword and off skip the model.
func (a *App) configureClassifier() error {
	c, err := skill.NewLLMClassifier(a.Agent.SummaryClient, a.Log)
	if err != nil {
		return fmt.Errorf("creating classifier: %w", err)
	}
	c.WithEnabled(a.classifierEnabled)
	a.Classifier = c
	a.Skills.SetClassifier(c)
	return nil
}

func (a *App) classifierEnabled() bool {
	return a.Settings().ClassifierMode == config.ClassifierLLM
}

// homeLocation is the route origin used when a message names none.
func (a *App) homeLocation() string {
	entry, err := a.Profile.Get(ProfileLocationKey)
	if err != nil {
		a.Log.Debug().Err(err).Msg("profile location lookup failed")
		return ""
	}
	if entry == nil {
		return ""
	}
	return entry.Value
}

// Settings is the typed view of the current configuration.
func (a *App) Settings() config.Settings { return config.Load(a.Config) }

// GmailTokenDir is where the Gmail OAuth token lives.
func (a *App) GmailTokenDir() (string, error) { return a.Paths.SkillConfigDir("gmail") }

// MissingConfig lists required keys that no registered skill can find.
func (a *App) MissingConfig() []skill.Missing {
	return a.Skills.MissingConfig(a.Config.Lookup)
}

// Validate reports malformed configuration values.
func (a *App) Validate() []config.ValidationIssue {
	return config.Validate(a.Config, llm.ProviderNames())
}

// WatchConfig reloads config.json on external edits until ctx ends and
// emits config_changed after each change.
func (a *App) WatchConfig(ctx context.Context) {
	go func() {
		err := a.Config.Watch(ctx, func() {
			a.Log.Info().Msg("configuration reloaded")
			a.Hooks.Emit(ctx, hooks.EventConfigChanged, map[string]any{"path": a.Config.Path()})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			a.Log.Warn().Err(err).Msg("config watch stopped")
		}
	}()
}

// Close releases the database and background caches.
func (a *App) Close() error {
	a.Hooks.Wait()
	if a.Classifier != nil {
		a.Classifier.Close()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
