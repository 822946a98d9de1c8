package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xalekter/charts-edit/internal/session"
)

type addOptions struct {
	in, out string
	axes    axisFlags
	x, y    float64
	species []string
	sites   []string
}

func newAddCmd(root *rootOptions) *cobra.Command {
	opts := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a row interpolated from its neighbours",
		Long: `Append a row at (x, y). The remaining numeric columns are interpolated
from the nearest rows on either side of x among the rows matching the
species and site restrictions; outside that range the nearest row is cloned.`,
		Example: `  tracectl add --in traces.csv --x 20 --y 9 --species A --site 1 --out edited.DOY`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(opts.in, opts.axes, root.logger)
			if err != nil {
				return err
			}
			out, err := store.Execute(session.AddRowCommand{
				X:       opts.x,
				Y:       opts.y,
				Species: opts.species,
				Sites:   opts.sites,
			})
			if err != nil {
				return editingError(err)
			}
			if err := saveStore(store, opts.out, root.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.in, "in", "", "input table (.csv, tab separated text or .xlsx)")
	f.StringVar(&opts.out, "out", "", "output file (default modified_data.DOY)")
	f.StringVar(&opts.axes.x, "x-col", "", "X column (default DOY)")
	f.StringVar(&opts.axes.y, "y-col", "", "Y column (default the second numeric column)")
	f.Float64Var(&opts.x, "x", 0, "X value of the new row")
	f.Float64Var(&opts.y, "y", 0, "Y value of the new row")
	f.StringSliceVar(&opts.species, "species", nil, "restrict interpolation to this species")
	f.StringSliceVar(&opts.sites, "site", nil, "restrict interpolation to this site")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
	return cmd
}
