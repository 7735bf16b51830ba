package main

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/garnizeh/trailblazers/internal/assignment"
)

func (c *cli) assignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Manage jury assignments",
	}

	var opts assignment.AutoOptions
	auto := &cobra.Command{
		Use:   "auto",
		Short: "Distribute candidates across all jury members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if opts.Method == "" {
				opts.Method = a.Config.Award.AssignmentMethod
			}
			if opts.PerJury <= 0 {
				opts.PerJury = a.Config.Award.CandidatesPerJury
			}
			res, err := a.Services.Assignments.AutoAssign(cmd.Context(), 0, opts)
			if err != nil {
				return err
			}
			success(cmd, "Method %s: proposed %d, created %d, skipped %d.", res.Method, res.Proposed, res.Created, res.Skipped)
			if res.Cleared {
				warn(cmd, "Existing assignments were cleared first.")
			}
			return nil
		},
	}
	auto.Flags().StringVar(&opts.Method, "method", "", "balanced or random (defaults to the configured method)")
	auto.Flags().IntVar(&opts.PerJury, "per-jury", 0, "Candidates per jury member (defaults to the configured value)")
	auto.Flags().BoolVar(&opts.ClearExisting, "clear", false, "Remove all existing assignments first")

	distribution := &cobra.Command{
		Use:   "distribution",
		Short: "Show how many jury members review each candidate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.Services.Assignments.Distribution(cmd.Context())
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Candidate", "Reviewers"})
			for _, cc := range d.Candidates {
				table.Append([]string{strconv.FormatInt(cc.CandidateID, 10), strconv.Itoa(cc.Count)})
			}
			table.Render()
			success(cmd, "Jury members: %d, assignments: %d, per candidate: %d-%d", d.JuryMembers, d.Total, d.Min, d.Max)
			if d.Unassigned > 0 {
				warn(cmd, "%d candidates have no reviewer.", d.Unassigned)
			}
			return nil
		},
	}

	cmd.AddCommand(auto, distribution)
	return cmd
}
