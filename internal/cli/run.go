package cli

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <command...>",
		Short: "Run a shell command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
	// Flags after the command name belong to the command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// runShell runs line through sh and prints its output. A failing command
// is reported, not returned.
func runShell(ctx context.Context, out io.Writer, line string) error {
	c := exec.CommandContext(ctx, "sh", "-c", line)
	var stdout, stderr strings.Builder
	c.Stdout = &stdout
	c.Stderr = &stderr
	err := c.Run()
	if stdout.Len() > 0 {
		fmt.Fprint(out, stdout.String())
	}
	if stderr.Len() > 0 {
		fmt.Fprintf(out, "Errors:\n%s", stderr.String())
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return fmt.Errorf("running command: %w", err)
		}
		fmt.Fprintf(out, "Command failed: %v\n", err)
	}
	return nil
}
