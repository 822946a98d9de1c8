package plot

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xalekter/charts-edit/internal/table"
	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

func traces(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New([]string{"DOY", "Sc", "SiteC", "Val"})
	rows := [][]table.Value{
		{table.Number(30), table.Text("A"), table.Number(1), table.Number(4)},
		{table.Number(10), table.Text("A"), table.Number(1), table.Number(2)},
		{table.Number(20), table.Text("B"), table.Number(2), table.Number(6)},
		{table.Number(40), table.Text("B"), table.Number(2), table.Missing()},
	}
	for _, r := range rows {
		_, err := tbl.Append(r)
		require.NoError(t, err)
	}
	return tbl
}

func byKind(fig *Figure, kind TraceKind) []Trace {
	var out []Trace
	for _, tr := range fig.Traces {
		if tr.Kind == kind {
			out = append(out, tr)
		}
	}
	return out
}

func TestAssemble_SingleTrend(t *testing.T) {
	tbl := traces(t)

	fig, err := Assemble(tbl, Options{XColumn: "DOY", YColumn: "Val"})
	require.NoError(t, err)

	trend := byKind(fig, TraceTrend)
	require.Len(t, trend, 1)
	assert.Equal(t, "Data Trend", trend[0].Name)
	assert.Equal(t, "steelblue", trend[0].Color)
	assert.Equal(t, []float64{10, 20, 30}, trend[0].X, "sorted by X, missing Y skipped")
	assert.Equal(t, []float64{2, 6, 4}, trend[0].Y)

	overlay := byKind(fig, TraceEditPoints)
	require.Len(t, overlay, 1)
	assert.Equal(t, EditPointsName, overlay[0].Name)
	assert.Equal(t, []int{0, 1, 2}, overlay[0].Positions)
	assert.Equal(t, []uint64{1, 2, 3}, overlay[0].Keys)

	assert.Equal(t, 4.0, fig.Stats.Mean)
	assert.Equal(t, 2.0, fig.Stats.Std)
	assert.Equal(t, 2.0, fig.Stats.Min)
	assert.Equal(t, 6.0, fig.Stats.Max)
	assert.Equal(t, 4, fig.Stats.Filtered)
	assert.Equal(t, 4, fig.Stats.Total)

	mean := byKind(fig, TraceMean)
	require.Len(t, mean, 1)
	assert.Equal(t, []float64{10, 30}, mean[0].X)
	assert.Equal(t, []float64{4, 4}, mean[0].Y)

	assert.Equal(t, "Val vs DOY - 4 points • Mean: 4.000", fig.Title)
	assert.Equal(t, "Plotted 4 points (filtered from 4 total)", fig.Status)
}

func TestAssemble_GroupsBySpeciesThenSite(t *testing.T) {
	tbl := traces(t)

	fig, err := Assemble(tbl, Options{
		XColumn: "DOY", YColumn: "Val",
		Filter: table.Filter{Species: []string{"A", "B"}},
	})
	require.NoError(t, err)
	trend := byKind(fig, TraceTrend)
	require.Len(t, trend, 2)
	assert.Equal(t, "A Trend", trend[0].Name)
	assert.Equal(t, "steelblue", trend[0].Color)
	assert.Equal(t, "B Trend", trend[1].Name)
	assert.Equal(t, "forestgreen", trend[1].Color)
	assert.Equal(t, []float64{10, 30}, trend[0].X)

	fig, err = Assemble(tbl, Options{
		XColumn: "DOY", YColumn: "Val",
		Filter: table.Filter{Sites: []string{"2", "1"}},
	})
	require.NoError(t, err)
	trend = byKind(fig, TraceTrend)
	require.Len(t, trend, 2)
	assert.Equal(t, "Site 2 Trend", trend[0].Name)
	assert.Equal(t, "Site 1 Trend", trend[1].Name)
	assert.Contains(t, fig.Title, "Sites: 2, 1")
}

func TestAssemble_OverlayKeepsAbsolutePositions(t *testing.T) {
	tbl := traces(t)

	fig, err := Assemble(tbl, Options{XColumn: "DOY", YColumn: "Val", Filter: table.Filter{Species: []string{"B"}}})
	require.NoError(t, err)

	overlay := byKind(fig, TraceEditPoints)
	require.Len(t, overlay, 1)
	assert.Equal(t, []int{2}, overlay[0].Positions)
	assert.Equal(t, 2, fig.Stats.Filtered)
	assert.Equal(t, "Val vs DOY - 2 points • Species: B • Mean: 6.000", fig.Title)
}

func TestAssemble_Markers(t *testing.T) {
	tbl := traces(t)
	ms := []domain.Marker{
		{Position: 15, Label: "in", Color: domain.MarkerGold},
		{Position: 300, Label: "out", Color: domain.MarkerBlue},
	}

	fig, err := Assemble(tbl, Options{XColumn: "DOY", YColumn: "Val", Markers: ms})
	require.NoError(t, err)

	require.Len(t, fig.Markers, 1)
	assert.Equal(t, "in", fig.Markers[0].Label)
	assert.Contains(t, fig.Title, "2 markers", "title counts every marker")
}

func TestAssemble_Errors(t *testing.T) {
	tbl := traces(t)

	_, err := Assemble(tbl, Options{XColumn: "DOY", YColumn: "Val", Filter: table.Filter{Species: []string{"Z"}}})
	assert.ErrorIs(t, err, ErrEmptyFilterResult)

	_, err = Assemble(tbl, Options{XColumn: "DOY", YColumn: "Nope"})
	assert.ErrorIs(t, err, table.ErrColumn)

	_, err = Assemble(tbl, Options{XColumn: "DOY", YColumn: "Sc"})
	assert.ErrorIs(t, err, ErrNoPlottablePoints)
}

func TestRenderPNG(t *testing.T) {
	tbl := traces(t)
	fig, err := Assemble(tbl, Options{
		XColumn: "DOY", YColumn: "Val",
		Markers: []domain.Marker{{Position: 15, Label: "m", Color: domain.MarkerGold}},
	})
	require.NoError(t, err)

	data, err := RenderPNGBytes(fig, 400, 300)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestRenderPNG_SinglePoint(t *testing.T) {
	tbl := traces(t)
	fig, err := Assemble(tbl, Options{XColumn: "DOY", YColumn: "Val", Filter: table.Filter{Species: []string{"B"}}})
	require.NoError(t, err)

	_, err = RenderPNGBytes(fig, 0, 0)
	assert.NoError(t, err)
}
