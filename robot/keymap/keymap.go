// Package keymap translates raw keyboard and pointer input into the
// abstract events the motion state machine consumes. Bindings can be
// overridden from a YAML file; anything unbound degrades to an interrupt
// so an unexpected key always stops the robot.
package keymap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maca/robotgrid/robot/engine"
)

// Binding action names accepted in the YAML file.
const (
	ActionLeft   = "left"
	ActionUp     = "up"
	ActionRight  = "right"
	ActionDown   = "down"
	ActionToggle = "toggle"
)

// Toggle timing: whether the mode toggle fires on key press or key
// release (the release variant frees the press for other handlers).
const (
	ToggleOnPress   = "press"
	ToggleOnRelease = "release"
)

// Keymap maps raw key names to binding actions.
type Keymap struct {
	Bindings map[string]string `yaml:"bindings"`
	ToggleOn string            `yaml:"toggle_on"`
}

// Default returns the stock bindings: arrow keys for direction, space for
// the mode toggle fired on press.
func Default() *Keymap {
	return &Keymap{
		Bindings: map[string]string{
			"ArrowLeft":  ActionLeft,
			"ArrowUp":    ActionUp,
			"ArrowRight": ActionRight,
			"ArrowDown":  ActionDown,
			" ":          ActionToggle,
		},
		ToggleOn: ToggleOnPress,
	}
}

// Load reads a keymap from a YAML file. A bindings table in the file
// replaces the default table wholesale; an omitted section keeps its
// default.
func Load(path string) (*Keymap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var km Keymap
	if err := yaml.Unmarshal(data, &km); err != nil {
		return nil, fmt.Errorf("failed to parse keymap '%s': %w", path, err)
	}

	def := Default()
	if km.Bindings == nil {
		km.Bindings = def.Bindings
	}
	if km.ToggleOn == "" {
		km.ToggleOn = def.ToggleOn
	}

	if err := km.validate(); err != nil {
		return nil, fmt.Errorf("invalid keymap '%s': %w", path, err)
	}
	return &km, nil
}

func (k *Keymap) validate() error {
	for key, action := range k.Bindings {
		switch action {
		case ActionLeft, ActionUp, ActionRight, ActionDown, ActionToggle:
		default:
			return fmt.Errorf("key %q bound to unknown action %q", key, action)
		}
	}
	switch k.ToggleOn {
	case ToggleOnPress, ToggleOnRelease:
		return nil
	default:
		return fmt.Errorf("toggle_on must be %q or %q, got %q", ToggleOnPress, ToggleOnRelease, k.ToggleOn)
	}
}

// KeyDown returns the event for a key press. Directional bindings become
// inputs, the toggle binding flips the key mode when toggle_on is
// "press", and everything else interrupts movement.
func (k *Keymap) KeyDown(key string) engine.Event {
	switch k.Bindings[key] {
	case ActionLeft:
		return engine.Input{Orientation: engine.Left}
	case ActionUp:
		return engine.Input{Orientation: engine.Up}
	case ActionRight:
		return engine.Input{Orientation: engine.Right}
	case ActionDown:
		return engine.Input{Orientation: engine.Down}
	case ActionToggle:
		if k.ToggleOn == ToggleOnPress {
			return engine.ToggleMode{}
		}
		return engine.Interrupt{}
	default:
		return engine.Interrupt{}
	}
}

// KeyUp returns the event for a key release. Releases interrupt
// movement, except the toggle binding when toggle_on is "release".
func (k *Keymap) KeyUp(key string) engine.Event {
	if k.Bindings[key] == ActionToggle && k.ToggleOn == ToggleOnRelease {
		return engine.ToggleMode{}
	}
	return engine.Interrupt{}
}

// Control returns the event for a pointer press on a named on-screen
// directional control ("left", "up", "right", "down"). Unknown control
// names interrupt, matching the keyboard fallback.
func (k *Keymap) Control(name string) engine.Event {
	o, err := engine.ParseOrientation(name)
	if err != nil {
		return engine.Interrupt{}
	}
	return engine.Input{Orientation: o}
}
