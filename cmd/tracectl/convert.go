package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConvertCmd(root *rootOptions) *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:     "convert",
		Short:   "Convert a table between text and workbook formats",
		Example: `  tracectl convert --in traces.xlsx --out traces.DOY`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, res, err := openStore(in, axisFlags{}, root.logger)
			if err != nil {
				return err
			}
			if err := saveStore(store, out, root.logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows and %d columns\n", res.Rows, len(res.Columns))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "input table (.csv, tab separated text or .xlsx)")
	cmd.Flags().StringVar(&out, "out", "", "output file, .xlsx for a workbook (default modified_data.DOY)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
