package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

func (cli *commandLine) delUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deluser ID [ID...]",
		Short: "Remove principals from the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := core.Dedupe(args)
			if len(ids) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			n, err := cli.usrSvc.Delete(context.Background(), ids...)
			if err != nil {
				return err
			}
			if n == 0 {
				return user.ErrNotFound
			}
			cli.printf("deleted %d user(s)\n", n)
			return nil
		},
	}
}

func (cli *commandLine) rosterCmd() *cobra.Command {
	var filter user.QueryFilter
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "List the principals on the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Roles = normalizeRoles(filter.Roles)
			filter.Clean()
			return cli.roster(&filter)
		},
	}
	cmd.Flags().StringVar(&filter.Search, "search", "", "search by name, username or e-mail")
	cmd.Flags().StringSliceVar(&filter.Roles, "role", nil, "only principals with any of these roles")
	return cmd
}

func (cli *commandLine) roster(filter *user.QueryFilter) error {
	users, err := cli.usrSvc.Query(context.Background(), filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLES\tACTIVE")
	for _, usr := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", usr.ID, usr.Name, usr.Email, strings.Join(usr.Roles, ","), usr.IsActive)
	}
	return w.Flush()
}
