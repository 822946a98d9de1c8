package session

import (
	"fmt"

	"github.com/xalekter/charts-edit/internal/table"
	"github.com/xalekter/charts-edit/pkg/contracts/domain"
)

// Command is one user action against a Store.
type Command interface {
	// Name identifies the command in logs and metrics.
	Name() string
	command()
}

// Outcome is the result of executing a command. Value holds the
// command-specific result (LoadResult, AddResult, StepResult, Selection,
// domain.Marker) or nil.
type Outcome struct {
	Message string
	Value   any
}

type (
	LoadCommand struct {
		Raw      []byte
		Filename string
	}
	ResetCommand      struct{}
	SelectAxesCommand struct {
		X, Y string
	}
	UpdateRowCommand struct {
		Index int
		X, Y  float64
	}
	RemoveRowCommand struct {
		Index int
	}
	AddRowCommand struct {
		X, Y    float64
		Species []string
		Sites   []string
	}
	StepCommand struct {
		Index     int
		Axis      Axis
		Direction int
		StepSize  float64
	}
	SelectCommand struct {
		Index int
	}
	ClearSelectionCommand struct{}
	AddMarkerCommand      struct {
		Position float64
		Label    string
		Color    domain.MarkerColor
	}
	AddPresetMarkerCommand struct {
		Preset string
	}
	RemoveMarkerCommand struct {
		Index int
	}
	ClearMarkersCommand struct{}
)

func (LoadCommand) Name() string            { return "load" }
func (ResetCommand) Name() string           { return "reset" }
func (SelectAxesCommand) Name() string      { return "select_axes" }
func (UpdateRowCommand) Name() string       { return "update_row" }
func (RemoveRowCommand) Name() string       { return "remove_row" }
func (AddRowCommand) Name() string          { return "add_row" }
func (StepCommand) Name() string            { return "step" }
func (SelectCommand) Name() string          { return "select" }
func (ClearSelectionCommand) Name() string  { return "clear_selection" }
func (AddMarkerCommand) Name() string       { return "add_marker" }
func (AddPresetMarkerCommand) Name() string { return "add_preset_marker" }
func (RemoveMarkerCommand) Name() string    { return "remove_marker" }
func (ClearMarkersCommand) Name() string    { return "clear_markers" }

func (LoadCommand) command()            {}
func (ResetCommand) command()           {}
func (SelectAxesCommand) command()      {}
func (UpdateRowCommand) command()       {}
func (RemoveRowCommand) command()       {}
func (AddRowCommand) command()          {}
func (StepCommand) command()            {}
func (SelectCommand) command()          {}
func (ClearSelectionCommand) command()  {}
func (AddMarkerCommand) command()       {}
func (AddPresetMarkerCommand) command() {}
func (RemoveMarkerCommand) command()    {}
func (ClearMarkersCommand) command()    {}

// Mutates reports whether a command can change the table or markers.
func Mutates(cmd Command) bool {
	switch cmd.(type) {
	case SelectCommand, ClearSelectionCommand, SelectAxesCommand:
		return false
	}
	return true
}

// Execute applies a command to the store.
func (s *Store) Execute(cmd Command) (Outcome, error) {
	switch c := cmd.(type) {
	case LoadCommand:
		res, err := s.Load(c.Raw, c.Filename)
		if err != nil {
			return Outcome{Message: res.Message}, err
		}
		return Outcome{Message: res.Message, Value: res}, nil

	case ResetCommand:
		msg, err := s.Reset()
		return Outcome{Message: msg}, err

	case SelectAxesCommand:
		if err := s.SelectAxes(c.X, c.Y); err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: fmt.Sprintf("Axes set to %s vs %s", c.Y, c.X)}, nil

	case UpdateRowCommand:
		msg, err := s.UpdateRow(c.Index, c.X, c.Y)
		return Outcome{Message: msg}, err

	case RemoveRowCommand:
		msg, err := s.RemoveRow(c.Index)
		return Outcome{Message: msg}, err

	case AddRowCommand:
		res, err := s.AddRow(c.X, c.Y, c.Species, c.Sites)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: res.Message, Value: res}, nil

	case StepCommand:
		res, err := s.StepSelected(c.Index, c.Axis, c.Direction, c.StepSize)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: res.Message, Value: res}, nil

	case SelectCommand:
		sel, err := s.Select(c.Index)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: fmt.Sprintf("Selected point %d", sel.Position), Value: sel}, nil

	case ClearSelectionCommand:
		s.ClearSelection()
		return Outcome{Message: "Selection cleared"}, nil

	case AddMarkerCommand:
		m, err := s.markers.Add(c.Position, c.Label, c.Color)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: fmt.Sprintf("Added marker %q at %s", m.Label, table.FormatNumber(m.Position)), Value: m}, nil

	case AddPresetMarkerCommand:
		m, err := s.markers.AddPreset(c.Preset)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: fmt.Sprintf("Added marker %q at %s", m.Label, table.FormatNumber(m.Position)), Value: m}, nil

	case RemoveMarkerCommand:
		m, err := s.markers.RemoveAt(c.Index)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: fmt.Sprintf("Removed marker %q", m.Label), Value: m}, nil

	case ClearMarkersCommand:
		s.markers.Clear()
		return Outcome{Message: "All markers cleared"}, nil
	}
	return Outcome{}, fmt.Errorf("%w: unsupported command %T", ErrInvalidArgument, cmd)
}
