package main

import (
	"os"
	"path/filepath"

	"textlift/internal/core/completion"
)

const (
	appTitle   = "TextLift"
	appReferer = "https://github.com/textlift/textlift"

	actionImprove = "improve"
	actionAnswer  = "answer"
)

// presetsPath resolves the optional presets file: the --presets flag wins,
// otherwise presets.yaml next to the settings file.
func presetsPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	dir, err := configDirPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "presets.yaml"), nil
}

// loadPresets returns no presets when the file does not exist; only an
// explicitly passed path that fails to load is an error.
func loadPresets(flagValue string) ([]completion.Preset, error) {
	path, err := presetsPath(flagValue)
	if err != nil {
		return nil, err
	}
	presets, err := completion.LoadPresets(path)
	if err != nil {
		if flagValue == "" && os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return presets, nil
}

func toneOptions() []string {
	tones := completion.Tones()
	options := make([]string, 0, len(tones))
	for _, tone := range tones {
		options = append(options, string(tone))
	}
	return options
}
