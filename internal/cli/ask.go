package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var sessionID string
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				if sessionID, err = a.Agent.NewSession(cmd.Context()); err != nil {
					return err
				}
			}
			res := a.Agent.Process(cmd.Context(), strings.Join(args, " "), sessionID)
			body := res.Response
			if !raw {
				body = renderMarkdown(body, 100)
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session ID to continue")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply without markdown rendering")
	return cmd
}
