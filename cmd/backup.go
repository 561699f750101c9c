package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/saravenpi/slash/internal/admin"
	"github.com/saravenpi/slash/internal/models"
)

var (
	backupOutput string
	backupOpen   bool
)

func init() {
	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "file to write the export to (default slash-backup-<date>.pdf)")
	backupCmd.Flags().BoolVar(&backupOpen, "open", false, "open the export in the browser instead of downloading it")
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export the service backup (admin only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		sess, err := a.sessions.Restore(ctx)
		if err != nil {
			return err
		}
		if !sess.Authenticated() {
			return errors.New("not signed in; start slash to sign in first")
		}
		if sess.Role != models.RoleAdmin {
			return errors.New("backup export requires an admin account")
		}

		ctl := admin.New(a.client, admin.BrowserOpener{})
		out := cmd.OutOrStdout()

		if backupOpen {
			if err := ctl.ExportBackup(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Opened %s\n", ctl.BackupURL())
			return nil
		}

		path := backupOutput
		if path == "" {
			path = fmt.Sprintf("slash-backup-%s.pdf", time.Now().Format("2006-01-02"))
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}

		start := time.Now()
		n, err := ctl.DownloadBackup(ctx, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Fprintf(out, "Saved %s (%s) in %s\n", path, humanize.Bytes(uint64(n)), time.Since(start).Round(time.Millisecond))
		return nil
	},
}
