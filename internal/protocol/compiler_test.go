package protocol

import (
	"strings"
	"testing"
	"time"
)

func fixedCompiler(mode Mode, day time.Time) *Compiler {
	c := NewCompiler(mode)
	c.now = func() time.Time { return day }
	return c
}

func TestCompile_SpeedOneShot(t *testing.T) {
	c := fixedCompiler(ModeSpeed, time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC))
	out := c.Compile("<tool>web_search</tool>", IterationContext{Index: 0, Max: 5}, nil)

	if !strings.Contains(out, "iteration 1") {
		t.Errorf("expected 1-based iteration, got %q", out)
	}
	if !strings.Contains(out, "5 total iterations") {
		t.Errorf("expected total iterations, got %q", out)
	}
	if strings.Contains(out, FileContextTag) {
		t.Error("expected no file-context block without files")
	}
	if strings.Contains(out, PreambleToolName) {
		t.Error("speed prompt must not mention the reasoning preamble")
	}
	if !strings.Contains(out, "<tool>web_search</tool>") {
		t.Error("catalog text must appear verbatim")
	}
}

func TestCompile_WireTokens(t *testing.T) {
	c := fixedCompiler(ModeBalanced, time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC))
	out := c.Compile("catalog", IterationContext{Index: 2, Max: 5}, nil)

	for _, token := range []string{StartOfText, IMStart, IMEnd, ToolListStart, ToolListEnd} {
		if !strings.Contains(out, token) {
			t.Errorf("expected token %q in prompt", token)
		}
	}
	if !strings.HasPrefix(out, StartOfText+IMStart+"system\n") {
		t.Errorf("prompt must open the system message, got prefix %q", out[:40])
	}
	if !strings.HasSuffix(out, IMEnd) {
		t.Error("prompt must close the system message")
	}

	listStart := strings.Index(out, ToolListStart)
	listEnd := strings.Index(out, ToolListEnd)
	if listStart < 0 || listEnd < listStart {
		t.Fatal("tool list tokens out of order")
	}
	if !strings.Contains(out[listStart:listEnd], "catalog") {
		t.Error("catalog must sit between the tool list tokens")
	}
}

func TestCompile_DateRenderedOnce(t *testing.T) {
	day := time.Date(2025, 7, 4, 9, 30, 0, 0, time.UTC)
	c := fixedCompiler(ModeQuality, day)
	out := c.Compile("catalog", IterationContext{Index: 0, Max: 5}, nil)

	want := "July 4, 2025"
	if n := strings.Count(out, want); n != 1 {
		t.Errorf("expected date %q exactly once, found %d times", want, n)
	}
}

func TestCompile_IdempotentModuloDate(t *testing.T) {
	iter := IterationContext{Index: 1, Max: 5}
	day1 := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)

	a := fixedCompiler(ModeBalanced, day1).Compile("catalog", iter, nil)
	b := fixedCompiler(ModeBalanced, day1).Compile("catalog", iter, nil)
	if a != b {
		t.Error("identical inputs and clock must produce identical prompts")
	}

	c := fixedCompiler(ModeBalanced, day2).Compile("catalog", iter, nil)
	stripped := strings.ReplaceAll(a, "March 14, 2025", "")
	strippedC := strings.ReplaceAll(c, "March 15, 2025", "")
	if stripped != strippedC {
		t.Error("prompts must differ only in the date substring across days")
	}
}

func TestCompile_FileContextIffFiles(t *testing.T) {
	c := fixedCompiler(ModeSpeed, time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC))
	iter := IterationContext{Index: 0, Max: 5}

	without := c.Compile("catalog", iter, nil)
	if strings.Contains(without, FileContextTag) {
		t.Error("no files, no file-context block")
	}

	files := []UploadedFile{
		{Name: "notes.txt", Content: "alpha"},
		{Name: "data.csv", Content: "a,b\n1,2"},
	}
	with := c.Compile("catalog", iter, files)
	if !strings.Contains(with, FileContextTag) {
		t.Fatal("expected file-context block")
	}
	if n := strings.Count(with, "<file name="); n != 2 {
		t.Errorf("expected 2 file entries, got %d", n)
	}
	if strings.Index(with, "notes.txt") > strings.Index(with, "data.csv") {
		t.Error("file entries must keep input order")
	}
}

func TestCompile_PreambleBanner(t *testing.T) {
	iter := IterationContext{Index: 0, Max: 5}
	day := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	banner := "YOU MUST CALL " + PreambleToolName + " BEFORE EVERY TOOL CALL"

	for _, tc := range []struct {
		mode Mode
		want bool
	}{
		{ModeSpeed, false},
		{ModeBalanced, true},
		{ModeQuality, true},
	} {
		out := fixedCompiler(tc.mode, day).Compile("catalog", iter, nil)
		if got := strings.Contains(out, banner); got != tc.want {
			t.Errorf("mode %q: banner present=%v, expected %v", tc.mode, got, tc.want)
		}
	}
}

func TestCompile_QualityResearchStrategy(t *testing.T) {
	iter := IterationContext{Index: 0, Max: 5}
	day := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	quality := fixedCompiler(ModeQuality, day).Compile("catalog", iter, nil)
	if !strings.Contains(quality, "<research_strategy>") {
		t.Error("quality prompt must carry the research strategy block")
	}
	if !strings.Contains(quality, "Aim for 4-7 information-gathering calls") {
		t.Error("quality prompt must state the info-call target")
	}

	balanced := fixedCompiler(ModeBalanced, day).Compile("catalog", iter, nil)
	if strings.Contains(balanced, "<research_strategy>") {
		t.Error("balanced prompt must not carry the research strategy block")
	}
}

func TestCompile_IterationCounters(t *testing.T) {
	day := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	for _, mode := range []Mode{ModeSpeed, ModeBalanced, ModeQuality} {
		out := fixedCompiler(mode, day).Compile("catalog", IterationContext{Index: 3, Max: 7}, nil)
		if !strings.Contains(out, "iteration 4") {
			t.Errorf("mode %q: expected iteration 4, got %q", mode, out)
		}
		if !strings.Contains(out, "7 total iterations") {
			t.Errorf("mode %q: expected 7 total iterations", mode)
		}
	}
}

func TestFormatUserMessage(t *testing.T) {
	out := FormatUserMessage("hello")
	if !strings.HasPrefix(out, IMStart+"user\nhello"+IMEnd) {
		t.Errorf("unexpected user framing: %q", out)
	}
	if !strings.HasSuffix(out, IMStart+"assistant\n") {
		t.Error("user message must open the assistant turn")
	}
}

func TestFormatToolResponse(t *testing.T) {
	out := FormatToolResponse("result")
	if !strings.Contains(out, IMStart+"tool\nresult"+IMEnd) {
		t.Errorf("unexpected tool framing: %q", out)
	}
	if !strings.HasSuffix(out, IMStart+"assistant\n") {
		t.Error("tool response must open the assistant turn")
	}
}
