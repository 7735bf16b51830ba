package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/garnizeh/trailblazers/internal/importer"
)

func (c *cli) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import data from spreadsheets",
	}

	var opts importer.Options
	candidates := &cobra.Command{
		Use:   "candidates <file.xlsx|file.csv>",
		Short: "Create or update candidates from an Excel or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := importer.ReadFile(args[0])
			if err != nil {
				return err
			}

			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if opts.AwardYear == 0 {
				opts.AwardYear = a.Config.Award.Year
			}
			res, err := a.Services.Importer.Import(cmd.Context(), rows, opts)
			if err != nil {
				return err
			}
			printImportResult(cmd, res)
			return nil
		},
	}
	candidates.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate and report without writing")
	candidates.Flags().BoolVar(&opts.UpdateExisting, "update", false, "Update candidates whose slug already exists")
	candidates.Flags().IntVar(&opts.AwardYear, "award-year", 0, "Award year for rows without one (defaults to the configured year)")
	candidates.Flags().StringVar(&opts.Phase, "phase", "", "Phase assigned to new candidates")

	cmd.AddCommand(candidates)
	return cmd
}

func printImportResult(cmd *cobra.Command, res *importer.Result) {
	prefix := ""
	if res.DryRun {
		prefix = "[dry run] "
	}
	success(cmd, "%sRows: %d, created: %d, updated: %d, skipped: %d", prefix, res.Total, res.Created, res.Updated, res.Skipped)
	for _, w := range res.Warnings {
		warn(cmd, "warning: %s", w)
	}
	if len(res.Errors) == 0 {
		return
	}
	heading(cmd, "Row errors")
	for _, e := range res.Errors {
		fmt.Fprintln(cmd.OutOrStdout(), "  "+e)
	}
}

func (c *cli) photosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photos",
		Short: "Manage candidate photos",
	}

	var opts importer.PhotoOptions
	match := &cobra.Command{
		Use:   "match <dir>",
		Short: "Match .webp files in dir to candidates and upload them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Services.Importer.MatchPhotos(cmd.Context(), args[0], a.Photos, opts)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"File", "Candidate", "Method", "Score"})
			for _, m := range res.Matched {
				table.Append([]string{m.File, m.Candidate + " (#" + strconv.FormatInt(m.CandidateID, 10) + ")", m.Method, fmt.Sprintf("%.2f", m.Score)})
			}
			table.Render()

			success(cmd, "Files: %d, matched: %d, uploaded: %d, skipped: %d", res.Files, len(res.Matched), res.Uploaded, res.Skipped)
			for _, f := range res.Unmatched {
				warn(cmd, "unmatched: %s", f)
			}
			for _, e := range res.Errors {
				warn(cmd, "error: %s", e)
			}
			return nil
		},
	}
	match.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report matches without uploading")
	match.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace photos of candidates that already have one")

	cmd.AddCommand(match)
	return cmd
}
