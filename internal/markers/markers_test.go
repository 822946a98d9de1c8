package markers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

func TestList_Add(t *testing.T) {
	tests := []struct {
		name    string
		pos     float64
		label   string
		color   domain.MarkerColor
		want    domain.Marker
		wantErr bool
	}{
		{"explicit colour", 100, "Flowering", domain.MarkerGold, domain.Marker{Position: 100, Label: "Flowering", Color: domain.MarkerGold}, false},
		{"default colour", 12, " Sowing ", "", domain.Marker{Position: 12, Label: "Sowing", Color: domain.MarkerRed}, false},
		{"missing label", 12, "  ", domain.MarkerBlue, domain.Marker{}, true},
		{"bad colour", 12, "x", "teal", domain.Marker{}, true},
		{"nan position", math.NaN(), "x", domain.MarkerBlue, domain.Marker{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewList()
			got, err := l.Add(tt.pos, tt.label, tt.color)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMarker)
				assert.Equal(t, 0, l.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []domain.Marker{tt.want}, l.All())
		})
	}
}

func TestList_RemoveAtAndClear(t *testing.T) {
	l := NewList()
	for _, label := range []string{"a", "b", "c"} {
		_, err := l.Add(1, label, "")
		require.NoError(t, err)
	}

	removed, err := l.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.Label)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "c", l.All()[1].Label)

	_, err = l.RemoveAt(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = l.RemoveAt(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.All())
}

func TestList_AddPreset(t *testing.T) {
	l := NewList()

	m, err := l.AddPreset("Peak")
	require.NoError(t, err)
	assert.Equal(t, domain.Marker{Position: 150, Label: "Peak Growing", Color: domain.MarkerOrange}, m)

	_, err = l.AddPreset("monsoon")
	assert.ErrorIs(t, err, ErrUnknownPreset)
	assert.Equal(t, 1, l.Len())
}

func TestList_Visible(t *testing.T) {
	l := NewList()
	for _, name := range []string{"spring", "peak", "autumn", "winter"} {
		_, err := l.AddPreset(name)
		require.NoError(t, err)
	}

	got := l.Visible(80, 245)
	require.Len(t, got, 3)
	assert.Equal(t, "Spring Start", got[0].Label)
	assert.Equal(t, "Autumn Start", got[2].Label)

	assert.Empty(t, l.Visible(1, 10))
	assert.Equal(t, 4, l.Len(), "hidden markers stay in the list")
}

func TestList_AllReturnsCopy(t *testing.T) {
	l := NewList()
	_, err := l.Add(5, "x", "")
	require.NoError(t, err)

	all := l.All()
	all[0].Label = "changed"

	assert.Equal(t, "x", l.All()[0].Label)
}
