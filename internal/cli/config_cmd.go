package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/collig/internal/config"
	"github.com/soyeahso/collig/internal/skill"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set configuration values",
	}

	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigUnsetCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func openStore() (*config.Store, error) {
	return config.OpenStore(paths, log)
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the configuration and any missing skill settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return printConfigList(cmd.OutOrStdout(), a.Config, a.MissingConfig())
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			return configGet(cmd.OutOrStdout(), store, args[0])
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value...>",
		Short: "Set a configuration value",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			return configSet(cmd.OutOrStdout(), store, args[0], strings.Join(args[1:], " "))
		},
	}
}

func newConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			return configUnset(cmd.OutOrStdout(), store, args[0])
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), paths.Config)
		},
	}
}

func configGet(out io.Writer, store *config.Store, key string) error {
	val, ok := store.Get(key)
	if !ok {
		return fmt.Errorf("key %q not found", key)
	}
	fmt.Fprintln(out, val)
	return nil
}

func configSet(out io.Writer, store *config.Store, key, value string) error {
	if err := store.Set(key, value); err != nil {
		return err
	}
	shown := value
	if config.IsAPIKey(key) {
		shown = config.Mask(value)
	}
	fmt.Fprintf(out, "Configuration updated: %s = %s\n", key, shown)
	if config.IsAPIKey(key) {
		fmt.Fprintf(out, "Environment variable %s updated.\n", key)
	}
	return nil
}

func configUnset(out io.Writer, store *config.Store, key string) error {
	removed, err := store.Unset(key)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("key %q not found", key)
	}
	fmt.Fprintf(out, "Unset %s\n", key)
	return nil
}

// printConfigList shows the stored values, API keys masked, followed by the
// keys skills still need.
func printConfigList(out io.Writer, store *config.Store, missing []skill.Missing) error {
	values := store.All()
	for k, v := range values {
		if config.IsAPIKey(k) {
			values[k] = config.Mask(v)
		}
	}

	fmt.Fprintf(out, "Current configuration (%s):\n", store.Path())
	if len(values) == 0 {
		fmt.Fprintln(out, "  (empty)")
	} else if err := printValue(out, values); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nMissing required configuration:")
	if len(missing) == 0 {
		fmt.Fprintln(out, "  All required configurations are set!")
		return nil
	}
	for _, m := range missing {
		fmt.Fprintf(out, "  MISSING %s (for %s)\n", m.Key, m.Skill)
	}
	return nil
}

// printValue outputs a value in a human-readable format.
func printValue(out io.Writer, v any) error {
	switch val := v.(type) {
	case string:
		fmt.Fprintln(out, val)
	case map[string]string, map[string]any, []any:
		data, err := yaml.Marshal(val)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
	default:
		fmt.Fprintln(out, val)
	}
	return nil
}
