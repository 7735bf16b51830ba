package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/garnizeh/trailblazers/internal/diagnostics"
)

func (c *cli) diagnoseCmd() *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run the system health checklist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Services.Diagnostics.Report(cmd.Context(), !cached)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			if report.Status == diagnostics.StatusError {
				return fmt.Errorf("diagnostics reported errors")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "Show the last stored report when it is still fresh")
	return cmd
}

func statusColor(status string) *color.Color {
	switch status {
	case diagnostics.StatusOK:
		return color.New(color.FgGreen)
	case diagnostics.StatusWarning:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed)
}

func printReport(cmd *cobra.Command, r *diagnostics.Report) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Check", "Status", "Message"})
	table.SetAutoWrapText(false)
	for _, ch := range r.Checks {
		table.Append([]string{ch.Name, statusColor(ch.Status).Sprint(ch.Status), ch.Message})
	}
	table.Render()

	statusColor(r.Status).Fprintf(cmd.OutOrStdout(), "Overall: %s (%s, generated %s)\n",
		r.Status, r.Duration, r.GeneratedAt.Format("2006-01-02 15:04:05"))
}

func (c *cli) fixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Repair evaluation data integrity problems",
	}

	var dryRun bool
	orphans := &cobra.Command{
		Use:   "orphans",
		Short: "Delete evaluations whose candidate, jury member or assignment is gone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, found, err := a.Services.Diagnostics.FixOrphans(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Evaluation", "Jury member", "Candidate", "Reason"})
			for _, o := range found {
				table.Append([]string{
					strconv.FormatInt(o.EvaluationID, 10),
					strconv.FormatInt(o.JuryMemberID, 10),
					strconv.FormatInt(o.CandidateID, 10),
					o.Reason,
				})
			}
			table.Render()
			printFix(cmd, res)
			return nil
		},
	}

	duplicates := &cobra.Command{
		Use:   "duplicates",
		Short: "Keep only the latest evaluation of each jury member and candidate pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, found, err := a.Services.Diagnostics.FixDuplicates(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Jury member", "Candidate", "Rows"})
			for _, d := range found {
				table.Append([]string{
					strconv.FormatInt(d.JuryMemberID, 10),
					strconv.FormatInt(d.CandidateID, 10),
					strconv.FormatInt(d.Count, 10),
				})
			}
			table.Render()
			printFix(cmd, res)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Report without deleting")
	cmd.AddCommand(orphans, duplicates)
	return cmd
}

func printFix(cmd *cobra.Command, res *diagnostics.FixResult) {
	if res.DryRun {
		warn(cmd, "[dry run] found %d, nothing removed.", res.Found)
		return
	}
	success(cmd, "Found %d, removed %d.", res.Found, res.Removed)
}
