package cli

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/soyeahso/collig/internal/backup"
	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive config, memory and sessions into a zip file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createBackup(cmd.OutOrStdout(), paths.Base, outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the backup into")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <zip>",
		Short: "Restore data from a backup zip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprintf(out, "Are you sure you want to restore data from %s? This will overwrite current settings and memory. (y/N): ", args[0])
				answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return err
				}
				if !confirmed(answer) {
					fmt.Fprintln(out, "Restore cancelled.")
					return nil
				}
			}
			return restoreBackup(out, args[0], paths.Base)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func createBackup(out io.Writer, base, outDir string) error {
	path, err := backup.Create(base, outDir, time.Now())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	log.Info().Str("path", path).Msg("backup created")
	fmt.Fprintf(out, "Backup successful! Saved to %s\n", path)
	return nil
}

func restoreBackup(out io.Writer, zipPath, base string) error {
	n, err := backup.Restore(zipPath, base)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	log.Info().Str("path", zipPath).Int("files", n).Msg("backup restored")
	fmt.Fprintln(out, "Restore successful! Please restart the application to apply changes.")
	return nil
}
