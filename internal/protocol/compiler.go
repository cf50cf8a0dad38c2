package protocol

import (
	"fmt"
	"strings"
	"time"
)

// IterationContext carries the per-turn iteration counters. Index is 0-based;
// the compiled prompt renders it 1-based.
type IterationContext struct {
	Index int
	Max   int
}

// Compiler renders the mode-specific system prompt in the LFM2.5 wire format.
// Compile is pure and deterministic for a fixed clock reading; the only
// non-input it reads is the current calendar day.
type Compiler struct {
	profile Profile
	now     func() time.Time
}

// NewCompiler creates a compiler for the given mode. Unrecognized modes fall
// back to the speed profile (see ResolveProfile).
func NewCompiler(mode Mode) *Compiler {
	return &Compiler{
		profile: ResolveProfile(mode),
		now:     time.Now,
	}
}

// Profile returns the profile the compiler was resolved with.
func (c *Compiler) Profile() Profile {
	return c.profile
}

// promptSpec holds the mode-varying wording. The surrounding structure is a
// single template shared by all modes so the modes cannot drift apart.
type promptSpec struct {
	persona          string
	efficiencyNote   string
	goal             string
	corePrinciple    string
	researchStrategy string
	protocol         []string
}

var promptSpecs = map[Mode]promptSpec{
	ModeSpeed: {
		persona:        "You are an action orchestrator. Your job is to fulfill user requests by selecting and executing the available tools—no free-form replies.",
		efficiencyNote: " so act efficiently",
		goal: "Fulfill the user's request as quickly as possible using the available tools.\n" +
			"Call tools to gather information or perform tasks as needed.",
		corePrinciple: "Your knowledge is outdated; use web search to ground answers even for seemingly basic facts.",
		protocol: []string{
			fmt.Sprintf("NEVER output normal text to the user. ONLY call tools using %s and %s tokens.", ToolCallStart, ToolCallEnd),
			"Default to web_search when information is missing or stale; keep queries targeted (max 10 per call).",
			"Call done when you have gathered enough to answer or performed the required actions.",
		},
	},
	ModeBalanced: {
		persona:        "You are an action orchestrator. Your job is to fulfill user requests by reasoning briefly and executing the available tools—no free-form replies.",
		efficiencyNote: " so act efficiently",
		goal: "Fulfill the user's request with concise reasoning plus focused actions.\n" +
			"You must call the __reasoning_preamble tool before every tool call in this assistant turn.\n" +
			"Alternate: __reasoning_preamble → tool → __reasoning_preamble → tool ... and finish with __reasoning_preamble → done.",
		corePrinciple: "Your knowledge is outdated; use web search to ground answers even for seemingly basic facts.\n" +
			"You can call at most 6 tools total per turn.",
		protocol: []string{
			fmt.Sprintf("NEVER output normal text to the user. ONLY call tools using %s and %s tokens.", ToolCallStart, ToolCallEnd),
			"Start with __reasoning_preamble and call it before every tool call (including done).",
			"Default to web_search when information is missing or stale; keep queries targeted (max 10 per call).",
			"Call done only after you have the needed info or actions completed.",
		},
	},
	ModeQuality: {
		persona: "You are a deep-research orchestrator. Your job is to fulfill user requests with thorough, comprehensive research—no free-form replies.",
		goal: "Conduct the deepest, most thorough research possible. Leave no stone unturned.\n" +
			"Follow an iterative reason-act loop: call __reasoning_preamble before every tool call.\n" +
			"Finish with done only when you have comprehensive, multi-angle information.",
		corePrinciple: "Your knowledge is outdated; always use the available tools to ground answers.\n" +
			"This is DEEP RESEARCH mode—be exhaustive. Explore multiple angles: definitions, features, comparisons, recent news, expert opinions, use cases, limitations.\n" +
			"You can call up to 10 tools total per turn.",
		researchStrategy: "For any topic, consider searching:\n" +
			"1. Core definition/overview - What is it?\n" +
			"2. Features/capabilities - What can it do?\n" +
			"3. Comparisons - How does it compare to alternatives?\n" +
			"4. Recent news/updates - What's the latest?\n" +
			"5. Reviews/opinions - What do experts say?",
		protocol: []string{
			fmt.Sprintf("NEVER output normal text to the user. ONLY call tools using %s and %s tokens.", ToolCallStart, ToolCallEnd),
			"Follow an iterative loop: __reasoning_preamble → tool call → __reasoning_preamble → tool call → ... → done.",
			"Aim for 4-7 information-gathering calls covering different angles.",
			"Call done only after comprehensive research is complete.",
		},
	},
}

// Compile composes the system prompt: mode-fixed instruction blocks, the
// current date (rendered once, read at call time), the iteration counters,
// the externally supplied tool catalog (injected verbatim, never parsed),
// and the file-context block iff files is non-empty.
func (c *Compiler) Compile(catalogText string, iter IterationContext, files []UploadedFile) string {
	spec := promptSpecs[c.profile.Mode]
	today := c.now().Format("January 2, 2006")

	var b strings.Builder
	b.WriteString(StartOfText)
	b.WriteString(IMStart)
	b.WriteString("system\n")

	b.WriteString(spec.persona)
	b.WriteString("\n\nToday's date: ")
	b.WriteString(today)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "You are currently on iteration %d of your research process and have %d total iterations%s.\n",
		iter.Index+1, iter.Max, spec.efficiencyNote)
	fmt.Fprintf(&b, "When you are finished, you must call the `%s` tool. Never output text directly.\n\n",
		c.profile.TerminalTool)

	b.WriteString("<goal>\n")
	b.WriteString(spec.goal)
	b.WriteString("\n</goal>\n\n")

	b.WriteString("<core_principle>\n")
	b.WriteString(spec.corePrinciple)
	b.WriteString("\n</core_principle>\n\n")

	if fc := RenderFileContext(files); fc != "" {
		b.WriteString(fc)
		b.WriteString("\n\n")
	}

	b.WriteString(ToolListStart)
	b.WriteByte('\n')
	if c.profile.RequiresPreamble {
		fmt.Fprintf(&b, "YOU MUST CALL %s BEFORE EVERY TOOL CALL IN THIS ASSISTANT TURN.\n", c.profile.PreambleTool)
	}
	b.WriteString(catalogText)
	b.WriteByte('\n')
	b.WriteString(ToolListEnd)
	b.WriteString("\n\n")

	if spec.researchStrategy != "" {
		b.WriteString("<research_strategy>\n")
		b.WriteString(spec.researchStrategy)
		b.WriteString("\n</research_strategy>\n\n")
	}

	b.WriteString("<response_protocol>\n")
	for _, line := range spec.protocol {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("</response_protocol>")
	b.WriteString(IMEnd)

	return b.String()
}

// FormatUserMessage wraps a user message in chat-template tokens and opens
// the assistant turn.
func FormatUserMessage(content string) string {
	return IMStart + "user\n" + content + IMEnd + "\n" + IMStart + "assistant\n"
}

// FormatToolResponse wraps a tool response in chat-template tokens and opens
// the assistant turn.
func FormatToolResponse(content string) string {
	return IMStart + "tool\n" + content + IMEnd + "\n" + IMStart + "assistant\n"
}
