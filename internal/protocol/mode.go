// Package protocol implements the prompt compiler and tool-use protocol for
// the Delver research loop: mode profiles, the LFM2.5 wire format, tool-call
// parsing, and validation of model-emitted call sequences before dispatch.
package protocol

import "fmt"

// Mode selects the research behavior profile.
type Mode string

const (
	ModeSpeed    Mode = "speed"
	ModeBalanced Mode = "balanced"
	ModeQuality  Mode = "quality"
)

// LoopStyle describes the reason/act loop shape a mode instructs.
type LoopStyle int

const (
	LoopNone        LoopStyle = iota // one-shot tool selection
	LoopAlternating                  // preamble → tool → preamble → tool … → preamble → done
	LoopIterative                    // preamble → act(s) → preamble → act(s) … → done
)

// Reserved tool names. These are part of the wire protocol and must never
// collide with names supplied by the tool registry.
const (
	TerminalToolName = "done"
	PreambleToolName = "__reasoning_preamble"
)

// Profile is the immutable per-mode rule table. A zero limit means
// unconstrained.
type Profile struct {
	Mode             Mode
	RequiresPreamble bool
	PreambleTool     string
	TerminalTool     string
	MaxCallsPerTurn  int
	MinInfoCalls     int
	MaxInfoCalls     int
	Loop             LoopStyle
}

// MaxReasoningCalls returns the ceiling for preamble calls in a turn.
// The profile table carries no explicit reasoning budget; for preamble modes
// it is what remains of the total after the minimum info calls and the
// terminal call. Zero means unconstrained.
func (p Profile) MaxReasoningCalls() int {
	if !p.RequiresPreamble || p.MaxCallsPerTurn == 0 {
		return 0
	}
	return p.MaxCallsPerTurn - p.MinInfoCalls - 1
}

var profiles = map[Mode]Profile{
	ModeSpeed: {
		Mode:         ModeSpeed,
		PreambleTool: PreambleToolName,
		TerminalTool: TerminalToolName,
		Loop:         LoopNone,
	},
	ModeBalanced: {
		Mode:             ModeBalanced,
		RequiresPreamble: true,
		PreambleTool:     PreambleToolName,
		TerminalTool:     TerminalToolName,
		MaxCallsPerTurn:  6,
		MinInfoCalls:     2,
		MaxInfoCalls:     3,
		Loop:             LoopAlternating,
	},
	ModeQuality: {
		Mode:             ModeQuality,
		RequiresPreamble: true,
		PreambleTool:     PreambleToolName,
		TerminalTool:     TerminalToolName,
		MaxCallsPerTurn:  10,
		MinInfoCalls:     2,
		MaxInfoCalls:     7,
		Loop:             LoopIterative,
	},
}

// ResolveProfile returns the profile for a mode. Unrecognized modes fall back
// to the speed profile. Use ResolveProfileStrict to surface a configuration
// error instead.
func ResolveProfile(mode Mode) Profile {
	if p, ok := profiles[mode]; ok {
		return p
	}
	return profiles[ModeSpeed]
}

// ResolveProfileStrict returns the profile for a mode, or a ConfigError for
// an unrecognized mode.
func ResolveProfileStrict(mode Mode) (Profile, error) {
	if p, ok := profiles[mode]; ok {
		return p, nil
	}
	return Profile{}, &ConfigError{Mode: string(mode)}
}

// ConfigError reports an unrecognized research mode.
type ConfigError struct {
	Mode string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unknown research mode %q (valid: speed, balanced, quality)", e.Mode)
}
