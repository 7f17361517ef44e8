// Package cli implements the taskcli command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/tasklist/internal/client"
)

// RootOptions holds the global flags.
type RootOptions struct {
	API         string
	SessionPath string
	Password    string
}

// app is what every subcommand works with once flags are parsed.
type app struct {
	opts    *RootOptions
	api     *client.Client
	session *client.SessionStore
}

// NewRootCommand creates the taskcli root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	a := &app{opts: opts}

	cmd := &cobra.Command{
		Use:          "taskcli",
		Short:        "Manage your task list from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.API, "api", envOr("TASKLIST_API", client.DefaultBaseURL), "API base URL (env TASKLIST_API)")
	cmd.PersistentFlags().StringVar(&opts.SessionPath, "session", defaultSessionPath(), "session file")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "password (prompted when omitted)")

	cmd.AddCommand(newRegisterCommand(a))
	cmd.AddCommand(newLoginCommand(a))
	cmd.AddCommand(newLogoutCommand(a))
	cmd.AddCommand(newWhoamiCommand(a))
	cmd.AddCommand(newListCommand(a))
	cmd.AddCommand(newAddCommand(a))
	cmd.AddCommand(newDoneCommand(a))
	cmd.AddCommand(newDeleteCommand(a))
	cmd.AddCommand(newClearCommand(a))

	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	api, err := client.New(a.opts.API, nil)
	if err != nil {
		return err
	}
	session, err := client.OpenSessionStore(a.opts.SessionPath)
	if err != nil {
		return err
	}
	a.api, a.session = api, session

	out := cmd.OutOrStdout()
	a.session.Subscribe(func(s client.Session) {
		if s.LoggedIn() {
			fmt.Fprintf(out, "Logged in as %s.\n", s.Username)
		} else {
			fmt.Fprintln(out, "Logged out.")
		}
	})
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tasklist-session.yaml"
	}
	return filepath.Join(dir, "tasklist", "session.yaml")
}
