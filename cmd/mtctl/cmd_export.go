package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/garnizeh/trailblazers/internal/export"
)

func (c *cli) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "export <" + strings.Join(export.Kinds, "|") + ">",
		Short:     "Export data as CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: export.Kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if !slices.Contains(export.Kinds, kind) {
				return fmt.Errorf("unknown export %q; expected one of %s", kind, strings.Join(export.Kinds, ", "))
			}

			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				if out == "auto" {
					out = export.Filename(kind, time.Now())
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if err := a.Services.Exporter.Write(cmd.Context(), kind, w); err != nil {
				return err
			}
			if out != "" {
				success(cmd, "Exported %s to %s.", kind, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", `Output file; "auto" picks a dated name, empty writes to stdout`)
	return cmd
}
