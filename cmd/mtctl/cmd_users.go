package main

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/garnizeh/trailblazers/internal/accounts"
	"github.com/garnizeh/trailblazers/pkg/models"
)

func (c *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var in accounts.NewUser
	var juryID int64
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator or jury member account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Services.Accounts.CreateUser(cmd.Context(), 0, in)
			if err != nil {
				return err
			}
			success(cmd, "Created user %d (%s, %s).", u.ID, u.Email, u.Role)

			if juryID > 0 {
				if err := a.Services.Accounts.LinkJuryUser(cmd.Context(), 0, juryID, u.ID); err != nil {
					return err
				}
				success(cmd, "Linked to jury member %d.", juryID)
			}
			return nil
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "Login email address")
	create.Flags().StringVar(&in.DisplayName, "name", "", "Display name")
	create.Flags().StringVar(&in.Password, "password", "", "Initial password (at least 8 characters)")
	create.Flags().StringVar(&in.Role, "role", models.RoleJuryMember, "administrator or jury_member")
	create.Flags().Int64Var(&juryID, "jury", 0, "Jury member ID to link the new account to")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := a.Repo.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Email", "Name", "Role"})
			for _, u := range users {
				table.Append([]string{strconv.FormatInt(u.ID, 10), u.Email, u.DisplayName, u.Role})
			}
			table.Render()
			return nil
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
