package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apierrors "github.com/xalekter/charts-edit/internal/errors"
	"github.com/xalekter/charts-edit/internal/plot"
	"github.com/xalekter/charts-edit/internal/session"
	"github.com/xalekter/charts-edit/internal/table"
)

type statsOptions struct {
	in      string
	axes    axisFlags
	filter  table.Filter
	asJSON  bool
	png     string
	markers []string
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	opts := &statsOptions{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the Y column of the filtered rows",
		Example: `  tracectl stats --in traces.csv --species A --json
  tracectl stats --in traces.csv --marker spring --png chart.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(opts.in, opts.axes, root.logger)
			if err != nil {
				return err
			}
			for _, preset := range opts.markers {
				if _, err := store.Execute(session.AddPresetMarkerCommand{Preset: preset}); err != nil {
					return apierrors.NewAppValidationError(err.Error())
				}
			}

			fig, err := store.Plot(opts.filter)
			if errors.Is(err, session.ErrEmptyFilterResult) {
				fmt.Fprintln(cmd.OutOrStdout(), "No data matches the selected filters")
				return nil
			}
			if err != nil {
				return editingError(err)
			}

			if opts.png != "" {
				if err := writePNG(opts.png, fig); err != nil {
					return err
				}
			}
			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(fig.Stats)
			}
			printStats(cmd, fig, opts.filter)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.in, "in", "", "input table (.csv, tab separated text or .xlsx)")
	f.StringVar(&opts.axes.x, "x-col", "", "X column (default DOY)")
	f.StringVar(&opts.axes.y, "y-col", "", "Y column (default the second numeric column)")
	f.StringSliceVar(&opts.filter.Species, "species", nil, "keep only these species")
	f.StringSliceVar(&opts.filter.Sites, "site", nil, "keep only these sites")
	f.StringSliceVar(&opts.filter.Descriptions, "description", nil, "keep only these descriptions")
	f.BoolVar(&opts.asJSON, "json", false, "print the statistics as JSON")
	f.StringVar(&opts.png, "png", "", "also render the chart to this PNG file")
	f.StringSliceVar(&opts.markers, "marker", nil, "add a preset marker to the chart (spring, peak, autumn, winter)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func printStats(cmd *cobra.Command, fig *plot.Figure, f table.Filter) {
	out := cmd.OutOrStdout()
	s := fig.Stats
	fmt.Fprintln(out, fig.Title)
	fmt.Fprintln(out, session.FilterStatus(f))
	fmt.Fprintf(out, "rows:  %d of %d\n", s.Filtered, s.Total)
	fmt.Fprintf(out, "mean:  %.2f\n", s.Mean)
	fmt.Fprintf(out, "std:   %.2f\n", s.Std)
	fmt.Fprintf(out, "range: %.2f to %.2f\n", s.Min, s.Max)
}

func writePNG(path string, fig *plot.Figure) error {
	file, err := os.Create(path)
	if err != nil {
		return apierrors.NewStorageError("failed to create chart file", err)
	}
	if err := plot.RenderPNG(file, fig, 0, 0); err != nil {
		file.Close()
		return apierrors.NewEditingError("failed to render chart", err)
	}
	if err := file.Close(); err != nil {
		return apierrors.NewStorageError("failed to write chart file", err)
	}
	return nil
}
