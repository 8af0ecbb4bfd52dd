package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/soyeahso/collig/internal/agent"
	"github.com/soyeahso/collig/internal/app"
	"github.com/soyeahso/collig/internal/llm"
	"github.com/spf13/cobra"
)

const doctorTimeout = 30 * time.Second

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"test"},
		Short:   "Check configuration and the active LLM provider",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return doctor(cmd.Context(), cmd.OutOrStdout(), a)
		},
	}
}

// doctor reports configuration problems and makes one small live call to
// the active provider. Problems are printed, never returned.
func doctor(ctx context.Context, out io.Writer, a *app.App) error {
	provider, model := a.Agent.Provider()
	fmt.Fprintf(out, "Provider: %s\nModel:    %s\n", provider, model)

	if issues := a.Validate(); len(issues) > 0 {
		fmt.Fprintln(out, "\nConfiguration issues:")
		for _, iss := range issues {
			fmt.Fprintf(out, "  ✗ %s: %s\n", iss.Path, iss.Message)
		}
	}

	if key := llm.MissingKey(provider, a.Config.Lookup); key != "" {
		fmt.Fprintf(out, "\n✗ %s is not set. Run: collig config set %s <your-key>\n", key, key)
		return nil
	}

	if provider == llm.ProviderLlama {
		host := a.Config.Lookup("OLLAMA_HOST")
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		models, err := llm.NewOllamaClient(host, "").Models(pctx)
		cancel()
		if err != nil {
			fmt.Fprintf(out, "\n✗ Ollama is not reachable: %v\n  Is `ollama serve` running?\n", err)
			return nil
		}
		fmt.Fprintf(out, "✓ Ollama reachable (%d models pulled)\n", len(models))
	}

	fmt.Fprintln(out, "\nTesting connection...")
	cctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()
	start := time.Now()
	reply, err := a.Agent.Complete(cctx, "You are a connectivity check. Answer tersely.", "What is 2+2?")
	if err != nil {
		var mk *agent.MissingKeyError
		if errors.As(err, &mk) {
			fmt.Fprintf(out, "✗ %s\n", mk.Guidance())
			return nil
		}
		fmt.Fprintf(out, "✗ Connection failed: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "✓ Connection successful (%s)\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "  Response: %s\n", strings.TrimSpace(reply))
	return nil
}
