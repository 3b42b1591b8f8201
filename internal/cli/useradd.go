package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	auth "auctions/internal/authService"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newUserAddCommand(opts *options) *cobra.Command {
	var (
		username string
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				password, err = readPassword(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if strings.TrimSpace(password) == "" {
				return errors.New("password cannot be empty")
			}

			store, err := openStore(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := auth.NewAuthService(store, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			user, err := svc.Register(cmd.Context(), auth.RegisterInput{
				Username:     username,
				Email:        email,
				Password:     password,
				Confirmation: password,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "User %s created successfully with ID %d\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// readPassword reads without echo from a terminal, or a single line otherwise
func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
