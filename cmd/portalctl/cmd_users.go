package main

import (
	"errors"
	"fmt"
	"os"

	"bizportal/internal/repository"
	"bizportal/internal/service"
	"bizportal/pkg/rbac"

	"github.com/spf13/cobra"
)

var newUser struct {
	email    string
	password string
	name     string
	role     string
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a dashboard or client-portal login",
	Long: `Creates a user. A client user is linked to the client record with the
same email, if one exists.

The password can also be passed through PORTAL_USER_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: runCreateUser,
}

func init() {
	f := createUserCmd.Flags()
	f.StringVar(&newUser.email, "email", "", "login email")
	f.StringVar(&newUser.password, "password", "", "login password (min 8 characters)")
	f.StringVar(&newUser.name, "name", "", "display name")
	f.StringVar(&newUser.role, "role", rbac.RoleAdmin, "admin or client")
	_ = createUserCmd.MarkFlagRequired("email")
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	password := newUser.password
	if password == "" {
		password = os.Getenv("PORTAL_USER_PASSWORD")
	}
	if password == "" {
		return errors.New("--password or PORTAL_USER_PASSWORD is required")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	auth := service.NewAuthService(
		repository.NewUserRepository(pool),
		repository.NewClientRepository(pool),
		nil,
		cfg.JWT.Secret,
		cfg.JWT.TTL,
		log,
	)

	u, err := auth.CreateUser(ctx, newUser.email, password, newUser.name, newUser.role)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s user %d (%s)", u.Role, u.ID, u.Email)
	if u.ClientID != nil {
		fmt.Fprintf(cmd.OutOrStdout(), " linked to client %d", *u.ClientID)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
