package completion

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeImprove   Mode = "improve"
	ModeInterview Mode = "interview"
)

type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneAcademic     Tone = "academic"
	ToneCreative     Tone = "creative"
)

const (
	improveSystemPrompt = "You are a helpful assistant that improves and shortens text. " +
		"Provide only the improved text without any introductory phrases like " +
		"'Here's the improved and shortened text:' or similar. " +
		"Start your response directly with the improved content."

	interviewSystemPrompt = "You are a helpful assistant that answers interview questions. " +
		"Provide a short and precise answer without any introductory phrases. " +
		"Be concise and get straight to the point. " +
		"Limit your response to 4-7 sentences when possible. " +
		"Start your response directly with the answer."
)

var toneInstructions = map[Tone]string{
	ToneProfessional: "Improve and shorten this text to make it clear, concise, and professional.",
	ToneCasual:       "Improve and shorten this text to make it friendly, conversational, and easy to read.",
	ToneAcademic:     "Improve and shorten this text to make it formal, precise, and suitable for academic context.",
	ToneCreative:     "Improve and shorten this text to make it engaging, vivid, and creative.",
}

func Tones() []Tone {
	return []Tone{ToneProfessional, ToneCasual, ToneAcademic, ToneCreative}
}

// toneInstruction falls back to professional for unknown tones.
func toneInstruction(tone Tone) string {
	if instruction, ok := toneInstructions[Tone(strings.ToLower(string(tone)))]; ok {
		return instruction
	}
	return toneInstructions[ToneProfessional]
}

// BuildMessages assembles the chat payload for a mode, tone and input text.
func BuildMessages(mode Mode, tone Tone, text string) []Message {
	switch mode {
	case ModeInterview:
		return []Message{
			{Role: "system", Content: interviewSystemPrompt},
			{Role: "user", Content: "Please answer this question: " + text},
		}
	default:
		return []Message{
			{Role: "system", Content: improveSystemPrompt},
			{Role: "user", Content: toneInstruction(tone) + " Text: " + text},
		}
	}
}

// Preset is a user-defined action loaded from the optional presets file.
// Each preset becomes an extra button that sends the captured text with its
// own system prompt.
type Preset struct {
	Name   string `yaml:"name"`
	System string `yaml:"system"`
	Model  string `yaml:"model,omitempty"`
}

func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePresets(data)
}

func ParsePresets(data []byte) ([]Preset, error) {
	var presets []Preset
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	valid := presets[:0]
	for _, preset := range presets {
		if strings.TrimSpace(preset.Name) == "" || strings.TrimSpace(preset.System) == "" {
			continue
		}
		valid = append(valid, preset)
	}
	return valid, nil
}

// PresetMessages assembles the chat payload for a user-defined preset.
func PresetMessages(preset Preset, text string) []Message {
	return []Message{
		{Role: "system", Content: preset.System},
		{Role: "user", Content: text},
	}
}
