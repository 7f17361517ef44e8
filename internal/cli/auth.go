package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/tasklist/internal/client"
)

var errNotLoggedIn = errors.New("not logged in: run `taskcli register <username> <email>` to create an account, or `taskcli login <username>`")

// token returns the session token, or errNotLoggedIn before any request is
// made.
func (a *app) token() (string, error) {
	s := a.session.State()
	if !s.LoggedIn() {
		return "", errNotLoggedIn
	}
	return s.AccessToken, nil
}

// apiErr adds a hint to 401s from a task route.
func apiErr(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("%w: run `taskcli login <username>` to sign in again", err)
	}
	return err
}

func newRegisterCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register <username> <email>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.password(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			acc, err := a.api.Register(cmd.Context(), args[0], args[1], pw)
			if err != nil {
				return err
			}
			return a.session.Login(acc.Username, acc.AccessToken)
		},
	}
}

func newLoginCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in to an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.password(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			acc, err := a.api.Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			return a.session.Login(acc.Username, acc.AccessToken)
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session.Logout()
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.token()
			if err != nil {
				return err
			}
			user, err := a.api.Me(cmd.Context(), token)
			if err != nil {
				return apiErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (id %s)\n", user.Username, user.Email, user.ID)
			return nil
		},
	}
}
