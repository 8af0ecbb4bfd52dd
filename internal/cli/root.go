// Package cli implements the collig command tree.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/soyeahso/collig/internal/app"
	"github.com/soyeahso/collig/internal/config"
	"github.com/soyeahso/collig/internal/logging"
	"github.com/spf13/cobra"
)

var (
	homeDir   string
	logLevel  string
	logStderr bool

	// loaded at init time
	paths     config.Paths
	log       *logging.Logger
	logCloser io.Closer
)

// LogFileName is the file under the logs dir that receives JSON logs.
const LogFileName = "collig.log"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collig",
		Short: "Collig, your AI assistant for life & work",
		Long: "Collig is a conversational assistant that routes your requests to built-in skills " +
			"(notes, email, git, weather, maps...) or to a tool-calling language model.",
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if homeDir != "" {
				paths = config.PathsAt(homeDir)
			} else if paths, err = config.ResolvePaths(); err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			level := logLevel
			if level == "" {
				level = os.Getenv(config.KeyLogLevel)
			}
			if level == "" {
				level = "info"
			}
			if logStderr {
				log = logging.New(nil, level)
				return nil
			}
			// Logs go to a file so they never interleave with the conversation.
			log, logCloser, err = logging.NewFile(filepath.Join(paths.Logs, LogFileName), level)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, "")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&homeDir, "home", "", "data directory (default $COLLIG_HOME or ~/.collig)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")
	cmd.PersistentFlags().BoolVar(&logStderr, "log-stderr", false, "log to stderr instead of the log file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newProviderCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newSkillsCmd())
	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newRestoreCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func closeLog() error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

// openApp builds the application for commands that need skills or the agent.
func openApp() (*app.App, error) {
	return app.New(app.Options{Paths: paths, Log: log})
}

// Execute runs the root command.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		closeLog()
	}
	return err
}
