package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Jury reminder emails",
	}

	send := &cobra.Command{
		Use:   "send",
		Short: "Queue a reminder for every jury member with pending evaluations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Services.Mail.SendReminders(cmd.Context())
			if err != nil {
				return err
			}
			success(cmd, "Queued %d reminders, skipped %d jury members.", res.Queued, res.Skipped)
			warn(cmd, "Emails are delivered by the server's job workers.")
			return nil
		},
	}

	cmd.AddCommand(send)
	return cmd
}
