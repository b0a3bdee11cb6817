package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var nu user.NewUser
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Add a principal to the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			if nu.ID == "" || nu.Name == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.addUser(nu)
		},
	}
	cmd.Flags().StringVar(&nu.ID, "id", "", "id of the principal at the identity provider (required)")
	cmd.Flags().StringVar(&nu.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&nu.Username, "username", "", "username")
	cmd.Flags().StringVar(&nu.Email, "email", "", "e-mail address, used for notifications")
	cmd.Flags().StringSliceVar(&nu.Roles, "role", nil, "role(s): admin, admin:owner, admin:principal, teacher, student")
	return cmd
}

// addUser validates and adds a user.User to the roster.
func (cli *commandLine) addUser(nu user.NewUser) error {
	nu.Roles = normalizeRoles(nu.Roles)
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	cli.printf("added %s (%s)\n", usr.ID, usr.Name)
	return nil
}

// normalizeRoles accepts role groups without their trailing ":" (ie: "teacher").
func normalizeRoles(roles []string) []string {
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		role = core.CleanString(role, true /* lower */)
		if role == "" {
			continue
		}
		if !strings.Contains(role, ":") {
			role += ":"
		}
		normalized = append(normalized, role)
	}
	return normalized
}
