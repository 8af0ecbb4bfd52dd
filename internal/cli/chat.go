package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/soyeahso/collig/internal/app"
	"github.com/soyeahso/collig/internal/hooks"
	"github.com/soyeahso/collig/internal/session"
	"github.com/soyeahso/collig/internal/skill"
	"github.com/soyeahso/collig/internal/skills/browser"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session ID to resume")
	return cmd
}

func runChat(cmd *cobra.Command, sessionID string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()
	a.WatchConfig(ctx)

	in := newLineInput(filepath.Join(paths.Logs, HistoryFileName), slashCompleter())
	defer in.Close()

	r := &repl{
		app:    a,
		in:     in,
		out:    cmd.OutOrStdout(),
		open:   browser.Open,
		render: func(s string) string { return renderMarkdown(s, 100) },
	}
	if err := r.start(ctx, sessionID); err != nil {
		return err
	}
	return r.loop(ctx)
}

// repl is one interactive chat session.
type repl struct {
	app     *app.App
	in      lineInput
	out     io.Writer
	open    browser.Opener
	render  func(string) string
	session string
}

type replCommand struct {
	name  string
	usage string
	run   func(r *repl, ctx context.Context, args []string) error
}

var replCommands []replCommand

func init() {
	replCommands = []replCommand{
		{"config", "config list|get|set|unset|path  Manage configuration", (*repl).cmdConfig},
		{"provider", "provider [list|<name> [model]]   Show or switch the LLM provider", (*repl).cmdProvider},
		{"backup", "backup [dir]                      Back up your data to a zip file", (*repl).cmdBackup},
		{"restore", "restore <zip>                     Restore data from a backup", (*repl).cmdRestore},
		{"run", "run <command>                     Run a shell command", (*repl).cmdRun},
		{"doctor", "doctor                            Check provider health", (*repl).cmdDoctor},
		{"test", "test                              Alias for doctor", (*repl).cmdDoctor},
		{"skills", "skills                            List available skills", (*repl).cmdSkills},
		{"session", "session                           Show the current session ID", (*repl).cmdSession},
		{"new", "new                               Start a new session", (*repl).cmdNew},
		{"clear", "clear                             Clear this session's history", (*repl).cmdClear},
		{"help", "help                              Show this help", (*repl).cmdHelp},
		{"exit", "exit, quit                        End the session", nil},
	}
}

func (r *repl) start(ctx context.Context, sessionID string) error {
	r.app.Hooks.On(hooks.EventToolCall, "cli", func(_ context.Context, p hooks.Payload) error {
		if p.String("phase") != "start" {
			if e := p.String("error"); e != "" {
				fmt.Fprintf(r.out, "  ✗ %s failed: %s\n", p.String("tool"), e)
			}
			return nil
		}
		fmt.Fprintf(r.out, "  ⚙ %s %s\n", p.String("tool"), p.String("args"))
		return nil
	})

	if sessionID == "" {
		id, err := r.app.Agent.NewSession(ctx)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		r.session = id
		fmt.Fprintf(r.out, "New session started: %s\n", id)
	} else {
		sess, err := r.app.Sessions.Get(sessionID)
		if err != nil {
			return fmt.Errorf("resuming session %s: %w", sessionID, err)
		}
		r.session = sess.ID
		fmt.Fprintf(r.out, "Resuming session: %s\n", sess.ID)
		for _, m := range sess.Messages {
			label := "Collig"
			if m.Role == session.RoleUser {
				label = "You"
			}
			fmt.Fprintf(r.out, "%s: %s\n", label, m.Content)
		}
	}
	fmt.Fprintln(r.out, "Type /help to see available commands, 'exit' or 'quit' to end the session.")
	fmt.Fprintln(r.out)
	return nil
}

func (r *repl) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.in.ReadLine("You: ")
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				r.goodbye()
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			r.goodbye()
			return nil
		}
		if err != nil {
			return err
		}
		if r.handle(ctx, line) {
			r.goodbye()
			return nil
		}
	}
}

// handle processes one input line and reports whether the user asked to quit.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmdLine := strings.TrimPrefix(line, "/")
	switch strings.ToLower(cmdLine) {
	case "exit", "quit":
		return true
	}

	if strings.HasPrefix(line, "/") {
		fields := strings.Fields(cmdLine)
		if len(fields) == 0 {
			return false
		}
		if c := findCommand(fields[0]); c != nil && c.run != nil {
			if err := c.run(r, ctx, fields[1:]); err != nil {
				fmt.Fprintf(r.out, "Error: %v\n", err)
			}
			return false
		}
		fmt.Fprintf(r.out, "Unknown command: /%s (try /help)\n", fields[0])
		return false
	}

	res := r.app.Agent.Process(ctx, line, r.session)
	r.show(ctx, res)
	return false
}

func findCommand(name string) *replCommand {
	for i := range replCommands {
		if replCommands[i].name == strings.ToLower(name) {
			return &replCommands[i]
		}
	}
	return nil
}

func (r *repl) show(ctx context.Context, res skill.Result) {
	body := res.Response
	if r.render != nil {
		body = r.render(body)
	}
	fmt.Fprintf(r.out, "Collig: %s\n", body)

	if res.Action == skill.ActionOpenURL {
		if url, _ := res.Data["url"].(string); url != "" && r.open != nil {
			if err := r.open(ctx, url); err != nil {
				fmt.Fprintf(r.out, "Failed to open browser: %v\n", err)
			} else {
				fmt.Fprintf(r.out, "Opened browser tab for: %s\n", url)
			}
		}
	}
	fmt.Fprintln(r.out)
}

func (r *repl) goodbye() {
	fmt.Fprintf(r.out, "\nGoodbye! Session ID: %s\nTo resume this session later, run: collig chat --session %s\n", r.session, r.session)
}

func (r *repl) cmdConfig(_ context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(r.out, "Usage:")
		fmt.Fprintln(r.out, "  /config list              - Show current configuration")
		fmt.Fprintln(r.out, "  /config get <key>         - Show one value")
		fmt.Fprintln(r.out, "  /config set <key> <value> - Set a configuration value")
		fmt.Fprintln(r.out, "  /config unset <key>       - Remove a value")
		fmt.Fprintln(r.out, "\nAvailable configuration options:")
		for _, s := range r.app.Skills.Skills() {
			if req := s.RequiredConfig(); len(req) > 0 {
				fmt.Fprintf(r.out, "  %s: %s\n", s.Name(), strings.Join(req, ", "))
			}
		}
		return nil
	}
	store := r.app.Config
	switch args[0] {
	case "list":
		return printConfigList(r.out, store, r.app.MissingConfig())
	case "get":
		if len(args) != 2 {
			return errors.New("usage: /config get <key>")
		}
		return configGet(r.out, store, args[1])
	case "set":
		if len(args) < 3 {
			return errors.New("usage: /config set <key> <value>")
		}
		return configSet(r.out, store, args[1], strings.Join(args[2:], " "))
	case "unset":
		if len(args) != 2 {
			return errors.New("usage: /config unset <key>")
		}
		return configUnset(r.out, store, args[1])
	case "path":
		fmt.Fprintln(r.out, store.Path())
		return nil
	}
	return fmt.Errorf("unknown config action: %s", args[0])
}

func (r *repl) cmdProvider(ctx context.Context, args []string) error {
	return providerCommand(ctx, r.out, r.app, args)
}

func (r *repl) cmdBackup(_ context.Context, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	return createBackup(r.out, paths.Base, dir)
}

func (r *repl) cmdRestore(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: /restore <path_to_zip_file>")
	}
	answer, err := r.in.ReadLine(fmt.Sprintf("Are you sure you want to restore data from %s? This will overwrite current settings and memory. (y/N): ", args[0]))
	if err != nil {
		return err
	}
	if !confirmed(answer) {
		fmt.Fprintln(r.out, "Restore cancelled.")
		return nil
	}
	return restoreBackup(r.out, args[0], paths.Base)
}

func (r *repl) cmdRun(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: /run <command> [args...]")
	}
	return runShell(ctx, r.out, strings.Join(args, " "))
}

func (r *repl) cmdDoctor(ctx context.Context, _ []string) error {
	return doctor(ctx, r.out, r.app)
}

func (r *repl) cmdSkills(_ context.Context, _ []string) error {
	printSkills(r.out, r.app.Skills)
	return nil
}

func (r *repl) cmdSession(_ context.Context, _ []string) error {
	fmt.Fprintf(r.out, "Session ID: %s\n", r.session)
	return nil
}

func (r *repl) cmdNew(ctx context.Context, _ []string) error {
	id, err := r.app.Agent.NewSession(ctx)
	if err != nil {
		return err
	}
	r.session = id
	fmt.Fprintf(r.out, "New session started: %s\n", id)
	return nil
}

func (r *repl) cmdClear(ctx context.Context, _ []string) error {
	if err := r.app.Agent.ClearSession(ctx, r.session); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Conversation history cleared.")
	return nil
}

func (r *repl) cmdHelp(_ context.Context, _ []string) error {
	fmt.Fprintln(r.out, "Commands:")
	for _, c := range replCommands {
		fmt.Fprintf(r.out, "  /%s\n", c.usage)
	}
	return nil
}

func confirmed(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
