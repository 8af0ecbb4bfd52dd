package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/soyeahso/collig/internal/skills/browser"
	"github.com/soyeahso/collig/internal/skills/gmail"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to external accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "gmail",
		Short: "Run the Google OAuth flow and cache the Gmail token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			creds := strings.TrimSpace(store.Lookup(gmail.KeyCredentialsFile))
			if creds == "" {
				return fmt.Errorf("%s is not set; run `collig config set %s /path/to/credentials.json` or the setup wizard first",
					gmail.KeyCredentialsFile, gmail.KeyCredentialsFile)
			}
			cfg, err := gmail.OAuthConfig(creds)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			open := func(url string) error { return browser.Open(ctx, url) }
			tok, err := gmail.Authorize(ctx, cfg, open, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			dir, err := paths.SkillConfigDir("gmail")
			if err != nil {
				return err
			}
			path := filepath.Join(dir, gmail.TokenFile)
			if err := gmail.SaveToken(path, tok); err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("gmail token saved")
			fmt.Fprintf(cmd.OutOrStdout(), "Gmail authorized. Token saved to %s\n", path)
			return nil
		},
	})
	return cmd
}
