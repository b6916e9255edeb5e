// Package script parses a small command language for replaying input
// sequences against a robot session deterministically:
//
//	press up        hold the up input until the next release
//	hold right 500  press right, keep it held for 500ms, then release
//	release         release whatever is held
//	toggle          flip the key mode
//	wait 200        idle for 200ms
package script

import (
	"fmt"

	"github.com/alecthomas/participle/v2"

	"github.com/maca/robotgrid/robot/engine"
)

// Script is the parsed command list.
type Script struct {
	Commands []*Command `parser:"@@*"`
}

// Command is one statement of the script language.
type Command struct {
	Press   *string `parser:"'press' @('up'|'down'|'left'|'right')"`
	Hold    *Hold   `parser:"| @@"`
	Release bool    `parser:"| @'release'"`
	Toggle  bool    `parser:"| @'toggle'"`
	Wait    *int    `parser:"| 'wait' @Int"`
}

// Hold presses a direction, keeps it held for a duration, and releases.
type Hold struct {
	Dir string `parser:"'hold' @('up'|'down'|'left'|'right')"`
	Ms  int    `parser:"@Int"`
}

var parser = participle.MustBuild[Script]()

// Parse parses script source.
func Parse(source string) (*Script, error) {
	s, err := parser.ParseString("script", source)
	if err != nil {
		return nil, fmt.Errorf("script parse error: %w", err)
	}
	return s, nil
}

// Step is one unit of a compiled script: an optional event to submit,
// followed by a pause. A nil Event is a pure wait.
type Step struct {
	Event   engine.Event
	DelayMs int
}

// Compile flattens the script into a timed event sequence.
func (s *Script) Compile() ([]Step, error) {
	var steps []Step
	for i, cmd := range s.Commands {
		switch {
		case cmd.Press != nil:
			o, err := engine.ParseOrientation(*cmd.Press)
			if err != nil {
				return nil, fmt.Errorf("command %d: %w", i+1, err)
			}
			steps = append(steps, Step{Event: engine.Input{Orientation: o}})
		case cmd.Hold != nil:
			o, err := engine.ParseOrientation(cmd.Hold.Dir)
			if err != nil {
				return nil, fmt.Errorf("command %d: %w", i+1, err)
			}
			if cmd.Hold.Ms < 0 {
				return nil, fmt.Errorf("command %d: hold duration must not be negative", i+1)
			}
			steps = append(steps,
				Step{Event: engine.Input{Orientation: o}, DelayMs: cmd.Hold.Ms},
				Step{Event: engine.Interrupt{}},
			)
		case cmd.Release:
			steps = append(steps, Step{Event: engine.Interrupt{}})
		case cmd.Toggle:
			steps = append(steps, Step{Event: engine.ToggleMode{}})
		case cmd.Wait != nil:
			if *cmd.Wait < 0 {
				return nil, fmt.Errorf("command %d: wait duration must not be negative", i+1)
			}
			steps = append(steps, Step{DelayMs: *cmd.Wait})
		default:
			return nil, fmt.Errorf("command %d: empty command", i+1)
		}
	}
	return steps, nil
}

// CompileString parses and compiles in one call.
func CompileString(source string) ([]Step, error) {
	s, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return s.Compile()
}
