package user

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/security"
)

// Command creates the user management command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard user accounts",
	}

	cmd.AddCommand(addCommand(settings))

	return cmd
}

// addCommand creates the 'user add' subcommand.
func addCommand(settings *conf.Settings) *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a dashboard user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}
			if role != datastore.RoleAdmin && role != datastore.RolePersonnel {
				return fmt.Errorf("role must be %s or %s", datastore.RoleAdmin, datastore.RolePersonnel)
			}

			store := datastore.New(settings)
			if store == nil {
				return fmt.Errorf("no database output enabled in configuration")
			}
			if err := store.Open(); err != nil {
				return fmt.Errorf("opening datastore: %w", err)
			}
			defer store.Close()

			sec := security.NewManager(settings)
			hash, err := sec.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}

			user := datastore.User{
				Name:         name,
				Email:        email,
				PasswordHash: hash,
				Role:         role,
			}
			if err := store.CreateUser(&user); err != nil {
				return fmt.Errorf("creating user: %w", err)
			}

			fmt.Printf("Created %s user %s (%s)\n", user.Role, user.Email, user.UID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name of the user")
	cmd.Flags().StringVar(&email, "email", "", "Email address, used as the login")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringVar(&role, "role", datastore.RolePersonnel, "User role, admin or personnel")

	return cmd
}
