package config

import "strings"

// ActionID represents a logical game action
type ActionID int

const (
	ActionNone ActionID = iota
	ActionInteract
	ActionExitVehicle
	ActionSpawnVehicle
	ActionToggleOrbit
	ActionChat
	ActionCount // Must be last - used for range checks
)

// InputBinding represents the key bindings for a single action. Keys are
// lowercase key names as delivered by the platform's key-down events.
type InputBinding struct {
	Keys []string
}

// InputConfig holds all input mappings
type InputConfig struct {
	Bindings map[ActionID]InputBinding
}

// Input is the global input configuration
var Input InputConfig

func init() {
	Input = DefaultInput()
}

// DefaultInput returns the stock key bindings.
func DefaultInput() InputConfig {
	return InputConfig{
		Bindings: map[ActionID]InputBinding{
			ActionInteract:     {Keys: []string{"e"}},
			ActionExitVehicle:  {Keys: []string{"x"}},
			ActionSpawnVehicle: {Keys: []string{"v"}},
			ActionToggleOrbit:  {Keys: []string{"o"}},
			ActionChat:         {Keys: []string{"t"}},
		},
	}
}

// KeyFor returns the primary key bound to an action, or "" if unbound.
func (c InputConfig) KeyFor(action ActionID) string {
	binding, ok := c.Bindings[action]
	if !ok || len(binding.Keys) == 0 {
		return ""
	}
	return binding.Keys[0]
}

// ActionFor returns the action bound to a key, matching case-insensitively.
func (c InputConfig) ActionFor(key string) ActionID {
	for action, binding := range c.Bindings {
		for _, k := range binding.Keys {
			if strings.EqualFold(k, key) {
				return action
			}
		}
	}
	return ActionNone
}

// Rebind replaces the bindings for an action. Out-of-range actions are
// ignored.
func (c *InputConfig) Rebind(action ActionID, keys ...string) {
	if action <= ActionNone || action >= ActionCount {
		return
	}
	if c.Bindings == nil {
		c.Bindings = make(map[ActionID]InputBinding)
	}
	lowered := make([]string, 0, len(keys))
	for _, k := range keys {
		lowered = append(lowered, strings.ToLower(k))
	}
	c.Bindings[action] = InputBinding{Keys: lowered}
}

// ActionName returns the stable name used when persisting bindings.
func ActionName(action ActionID) string {
	switch action {
	case ActionInteract:
		return "interact"
	case ActionExitVehicle:
		return "exitVehicle"
	case ActionSpawnVehicle:
		return "spawnVehicle"
	case ActionToggleOrbit:
		return "toggleOrbit"
	case ActionChat:
		return "chat"
	default:
		return "none"
	}
}

// ActionByName is the inverse of ActionName.
func ActionByName(name string) ActionID {
	switch name {
	case "interact":
		return ActionInteract
	case "exitVehicle":
		return ActionExitVehicle
	case "spawnVehicle":
		return ActionSpawnVehicle
	case "toggleOrbit":
		return ActionToggleOrbit
	case "chat":
		return ActionChat
	default:
		return ActionNone
	}
}
