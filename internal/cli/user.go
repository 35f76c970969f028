package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinoosan/tesouraria/internal/config"
	"github.com/tinoosan/tesouraria/internal/service/auth"
)

func newUserCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage operators allowed to log in",
	}

	var username, password, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an operator with a bcrypt-hashed password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			if cfg.ResolvedBackend() == config.BackendMemory {
				return fmt.Errorf("user add needs a persistent backend (postgres or sqlite)")
			}
			b, err := openBackend(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer b.closeFn()
			// Only hashing is used here; the signing secret is irrelevant.
			svc := auth.New(b, b, nil)
			u, err := svc.CreateUser(cmd.Context(), username, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s) id=%s\n", u.Username, u.Role, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&username, "username", "", "Login name")
	add.Flags().StringVar(&password, "password", "", "Plain-text password, hashed before storage")
	add.Flags().StringVar(&role, "role", auth.DefaultRole, "Role claim carried in tokens")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	user.AddCommand(add)
	return user
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.New(nil, nil, nil).HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
