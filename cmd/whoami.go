package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/saravenpi/slash/internal/models"
	"github.com/saravenpi/slash/internal/shell"
)

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer a.Close()

		sh := shell.New(a.sessions)
		defer sh.Close()

		ctx := context.Background()
		sess, err := a.sessions.Restore(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !sess.Authenticated() {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}

		// a failed resolution logs the session out, as in the interactive client
		if sh.Resolve(ctx) == shell.Unauthenticated {
			fmt.Fprintln(out, "Session expired. Start slash to sign in again.")
			return nil
		}
		sess = a.sessions.Current()
		if sess.Profile == nil {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}
		printProfile(out, *sess.Profile, sess.Role, a.cfg.Backend.URL)
		return nil
	},
}

func printProfile(out io.Writer, u models.User, role models.Role, backend string) {
	fmt.Fprintf(out, "%s (@%s)\n", u.DisplayName(), u.Username)
	if u.Phone != "" {
		fmt.Fprintf(out, "  phone: %s\n", u.Phone)
	}
	fmt.Fprintf(out, "  role:  %s\n", role)
	fmt.Fprintf(out, "  server: %s\n", backend)
}
