package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garage-labs/garage-api/internal/platform/auth/token"
	"github.com/garage-labs/garage-api/internal/ports/out/userrepo"
)

func newTokenCmd() *cobra.Command {
	var login string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an existing user",
		Long:  "Sign a token for the user with the given login, using the configured secret and lifetime.",
		RunE: func(cmd *cobra.Command, args []string) error {
			login = strings.TrimSpace(login)
			if login == "" {
				return errors.New("--login is required")
			}

			app, err := openApplication(cmd.Context(), newLogger())
			if err != nil {
				return err
			}
			defer app.Close()

			u, err := app.stores.Users.GetByLogin(cmd.Context(), login)
			if errors.Is(err, userrepo.ErrNotFound) {
				return fmt.Errorf("no user with login %q", login)
			}
			if err != nil {
				return err
			}

			raw, err := app.tokens.Issue(token.ClaimsFor(u))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "login of the user to mint a token for")

	return cmd
}
