package completion

import (
	"strings"
	"testing"
)

func TestBuildMessagesImprove(t *testing.T) {
	messages := BuildMessages(ModeImprove, ToneCasual, "some text")
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "system" || !strings.Contains(messages[0].Content, "improves and shortens") {
		t.Fatalf("unexpected system message: %#v", messages[0])
	}
	if !strings.Contains(messages[1].Content, "friendly, conversational") {
		t.Fatalf("tone instruction missing: %q", messages[1].Content)
	}
	if !strings.Contains(messages[1].Content, "some text") {
		t.Fatalf("input text missing: %q", messages[1].Content)
	}
}

func TestBuildMessagesInterview(t *testing.T) {
	messages := BuildMessages(ModeInterview, ToneProfessional, "what is a goroutine?")
	if !strings.Contains(messages[0].Content, "interview questions") {
		t.Fatalf("unexpected system message: %q", messages[0].Content)
	}
	if !strings.HasPrefix(messages[1].Content, "Please answer this question: ") {
		t.Fatalf("unexpected user message: %q", messages[1].Content)
	}
}

func TestUnknownToneFallsBackToProfessional(t *testing.T) {
	got := BuildMessages(ModeImprove, Tone("sarcastic"), "text")
	want := BuildMessages(ModeImprove, ToneProfessional, "text")
	if got[1].Content != want[1].Content {
		t.Fatalf("unknown tone did not fall back: %q", got[1].Content)
	}
}

func TestParsePresetsSkipsIncomplete(t *testing.T) {
	data := []byte(`
- name: Summarize
  system: Summarize the text in one paragraph.
- name: ""
  system: orphan
- name: NoSystem
  system: ""
`)
	presets, err := ParsePresets(data)
	if err != nil {
		t.Fatalf("ParsePresets() error = %v", err)
	}
	if len(presets) != 1 || presets[0].Name != "Summarize" {
		t.Fatalf("unexpected presets: %#v", presets)
	}
}
