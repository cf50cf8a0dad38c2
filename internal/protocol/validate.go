package protocol

import (
	"fmt"
	"strings"
)

// ViolationKind classifies a protocol violation.
type ViolationKind string

const (
	ViolationMissingPreamble ViolationKind = "missing_preamble"
	ViolationBudgetExceeded  ViolationKind = "budget_exceeded"
	ViolationTerminalEarly   ViolationKind = "terminal_early"
	ViolationTerminalMissing ViolationKind = "terminal_missing"
	ViolationUnknownTool     ViolationKind = "unknown_tool"
)

// BudgetKind names which budget a budget_exceeded violation tripped.
type BudgetKind string

const (
	BudgetTotal     BudgetKind = "total"
	BudgetReasoning BudgetKind = "reasoning"
	BudgetInfo      BudgetKind = "info"
)

// Violation is a single protocol violation. All outcomes are data; the
// validator never panics and never returns an error.
type Violation struct {
	Kind     ViolationKind
	Position int        // 0-based index into the call sequence, -1 when not positional
	Budget   BudgetKind // set for budget_exceeded
	Limit    int        // set for budget_exceeded
	Actual   int        // set for budget_exceeded
	Tool     string     // set for unknown_tool and terminal_early
}

// TurnState tallies the calls observed in one assistant turn.
type TurnState struct {
	Total     int
	Reasoning int
	Info      int
	Terminal  bool
}

// Result is the validator's verdict for one assistant turn.
//
// Accepted is true iff no violation of any kind was recorded. Dispatch is
// the prefix of calls allowed through: everything before the first budget
// overflow, with unknown tools excluded. Soft violations (missing_preamble,
// terminal_early) report but do not shrink Dispatch; the caller decides
// whether to re-prompt on them.
type Result struct {
	Accepted   bool
	Violations []Violation
	Dispatch   []ToolCall
	State      TurnState
}

// Validate checks a parsed call sequence against a mode profile in a single
// left-to-right pass.
//
// Rules, in the order they apply at each position:
//
//   - In preamble modes, every non-preamble call must be directly preceded by
//     a preamble call. A miss records missing_preamble but does not stop
//     dispatch.
//   - Names outside the known set and the reserved names record unknown_tool.
//     Unknown calls still count toward the budgets (the model spent the call)
//     but are never dispatched.
//   - Total, reasoning, and info budgets are checked as prefix counts. The
//     first overflow fixes the dispatch cutoff; calls at or after that
//     position are reported but not dispatched.
//   - The terminal tool must come last. Any non-preamble call after it
//     records terminal_early.
//   - Terminating a run that never made an info call, in a mode with a
//     minimum info budget, records budget_exceeded(info). The minimum itself
//     is prompt guidance; a model that gathered something and then closed is
//     trusted to have judged the request trivial enough.
//
// Validate sees a single turn. The zero-research check spans the run, so
// callers driving a multi-turn loop use ValidateTurn and carry the info count
// forward; Validate alone treats the turn as the whole run.
func Validate(profile Profile, calls []ToolCall, knownTools map[string]bool) Result {
	return ValidateTurn(profile, calls, knownTools, 0)
}

// ValidateTurn is Validate with the info-call count accumulated over earlier
// turns. Per-turn maxima ignore priorInfo; only the terminal-time
// zero-research check counts across turns.
func ValidateTurn(profile Profile, calls []ToolCall, knownTools map[string]bool, priorInfo int) Result {
	var res Result

	cutoff := len(calls)
	prevWasPreamble := false

	for i, call := range calls {
		isPreamble := call.Name == profile.PreambleTool
		isTerminal := call.Name == profile.TerminalTool

		if res.State.Terminal && !isPreamble {
			res.Violations = append(res.Violations, Violation{
				Kind:     ViolationTerminalEarly,
				Position: i,
				Tool:     call.Name,
			})
		}

		if profile.RequiresPreamble && !isPreamble && !prevWasPreamble {
			res.Violations = append(res.Violations, Violation{
				Kind:     ViolationMissingPreamble,
				Position: i,
			})
		}

		if !isPreamble && !isTerminal && !knownTools[call.Name] {
			res.Violations = append(res.Violations, Violation{
				Kind:     ViolationUnknownTool,
				Position: i,
				Tool:     call.Name,
			})
		}

		res.State.Total++
		switch {
		case isPreamble:
			res.State.Reasoning++
		case isTerminal:
			res.State.Terminal = true
		default:
			res.State.Info++
		}

		for _, v := range budgetChecks(profile, res.State) {
			v.Position = i
			res.Violations = append(res.Violations, v)
			if i < cutoff {
				cutoff = i
			}
		}

		prevWasPreamble = isPreamble
	}

	res.Dispatch = dispatchPrefix(profile, calls, cutoff, knownTools)

	if runInfo := priorInfo + res.State.Info; res.State.Terminal && profile.MinInfoCalls > 0 && runInfo == 0 {
		res.Violations = append(res.Violations, Violation{
			Kind:     ViolationBudgetExceeded,
			Position: -1,
			Budget:   BudgetInfo,
			Limit:    profile.MinInfoCalls,
			Actual:   runInfo,
		})
	}

	res.Accepted = len(res.Violations) == 0
	return res
}

// budgetChecks reports the budgets the running tallies have just overflowed.
// Each budget fires only at the exact crossing point so a single overflow is
// reported once.
func budgetChecks(profile Profile, s TurnState) []Violation {
	var out []Violation
	if profile.MaxCallsPerTurn > 0 && s.Total == profile.MaxCallsPerTurn+1 {
		out = append(out, Violation{
			Kind:   ViolationBudgetExceeded,
			Budget: BudgetTotal,
			Limit:  profile.MaxCallsPerTurn,
			Actual: s.Total,
		})
	}
	if limit := profile.MaxReasoningCalls(); limit > 0 && s.Reasoning == limit+1 {
		out = append(out, Violation{
			Kind:   ViolationBudgetExceeded,
			Budget: BudgetReasoning,
			Limit:  limit,
			Actual: s.Reasoning,
		})
	}
	if profile.MaxInfoCalls > 0 && s.Info == profile.MaxInfoCalls+1 {
		out = append(out, Violation{
			Kind:   ViolationBudgetExceeded,
			Budget: BudgetInfo,
			Limit:  profile.MaxInfoCalls,
			Actual: s.Info,
		})
	}
	return out
}

// dispatchPrefix collects the dispatchable calls before the budget cutoff:
// known tools plus the terminal, skipping preambles (they carry no action)
// and unknown names.
func dispatchPrefix(profile Profile, calls []ToolCall, cutoff int, knownTools map[string]bool) []ToolCall {
	var out []ToolCall
	for i, call := range calls {
		if i >= cutoff {
			break
		}
		if call.Name == profile.PreambleTool {
			continue
		}
		if call.Name == profile.TerminalTool || knownTools[call.Name] {
			out = append(out, call)
		}
	}
	return out
}

// CorrectiveFeedback renders the reminder fed back to the model after soft
// violations. Soft violations never block dispatch, so the reminder rides
// along with the turn's tool responses and steers the next turn. Empty when
// the turn carried nothing soft.
func CorrectiveFeedback(profile Profile, violations []Violation) string {
	var notes []string
	seen := map[ViolationKind]bool{}
	for _, v := range violations {
		if seen[v.Kind] {
			continue
		}
		seen[v.Kind] = true
		switch v.Kind {
		case ViolationMissingPreamble:
			notes = append(notes, fmt.Sprintf("call %s with your reasoning before every other tool call", profile.PreambleTool))
		case ViolationTerminalEarly:
			notes = append(notes, fmt.Sprintf("%s must be the last call in a turn", profile.TerminalTool))
		}
	}
	if len(notes) == 0 {
		return ""
	}
	return "Protocol reminder: " + strings.Join(notes, "; ") + "."
}

// TerminalMissing builds the violation the orchestrator records when the
// iteration limit elapses without the model ever calling the terminal tool.
// Validate cannot see across turns, so this lives with the caller that can.
func TerminalMissing(turns int) Violation {
	return Violation{
		Kind:     ViolationTerminalMissing,
		Position: -1,
		Actual:   turns,
	}
}
