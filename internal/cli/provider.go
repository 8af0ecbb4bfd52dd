package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/soyeahso/collig/internal/app"
	"github.com/spf13/cobra"
)

func newProviderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provider [list | <name> [model]]",
		Short: "Show, list or switch the LLM provider",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return providerCommand(cmd.Context(), cmd.OutOrStdout(), a, args)
		},
	}
}

func providerCommand(ctx context.Context, out io.Writer, a *app.App, args []string) error {
	name, model := a.Agent.Provider()
	switch {
	case len(args) == 0:
		fmt.Fprintf(out, "Current Provider: %s (Model: %s)\n", name, model)
		fmt.Fprintln(out, "Usage: provider list | provider <openai|deepseek|claude|llama> [model]")
	case args[0] == "list":
		fmt.Fprintln(out, "Available Models:")
		fmt.Fprintln(out, a.Agent.GetAvailableModels(ctx))
		fmt.Fprintf(out, "\nCurrent: %s (%s)\n", name, model)
	default:
		model := ""
		if len(args) > 1 {
			model = args[1]
		}
		fmt.Fprintln(out, a.Agent.SetProvider(args[0], model))
	}
	return nil
}
