//go:build linux

package linuxinput

import (
	"fmt"
	"os"
	"sort"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
}

type SourceSelection struct {
	Devices      []*evdev.InputDevice
	TriggerPaths map[string]struct{}
}

func ListInputDevices() ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]DeviceInfo, 0, len(paths))
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			continue
		}

		name := path.Name
		if actualName, err := dev.Name(); err == nil && actualName != "" {
			name = actualName
		}

		devices = append(devices, DeviceInfo{
			Path:      path.Path,
			Name:      name,
			IsVirtual: deviceIsVirtual(dev, name),
		})
		_ = dev.Close()
	}

	return devices, nil
}

// OpenSourceSelection opens the keyboards to listen on. With an explicit
// devicePath only that device is used; otherwise every non-virtual device
// exposing at least one trigger code is opened.
func OpenSourceSelection(devicePath string, triggerCodes map[uint16]struct{}) (*SourceSelection, error) {
	if devicePath != "" {
		dev, err := openInputDevice(devicePath)
		if err != nil {
			return nil, err
		}
		if !deviceSupportsAnyCode(dev, triggerCodes) {
			_ = dev.Close()
			return nil, fmt.Errorf("%s does not expose trigger %s", devicePath, formatCodeNames(triggerCodes))
		}
		path := dev.Path()
		return &SourceSelection{
			Devices:      []*evdev.InputDevice{dev},
			TriggerPaths: map[string]struct{}{path: {}},
		}, nil
	}

	matches, err := findDevicesByCodes(triggerCodes)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no input device exposes trigger %s; use --list-devices and then pass --device", formatCodeNames(triggerCodes))
	}

	devices := make([]*evdev.InputDevice, 0, len(matches))
	triggerPaths := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		dev, err := openInputDevice(match.Path)
		if err != nil {
			continue
		}
		devices = append(devices, dev)
		triggerPaths[dev.Path()] = struct{}{}
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("found matching input devices, but failed to open any of them")
	}

	return &SourceSelection{Devices: devices, TriggerPaths: triggerPaths}, nil
}

func openInputDevice(path string) (*evdev.InputDevice, error) {
	return evdev.OpenWithFlags(path, os.O_RDONLY)
}

func deviceSupportsCode(device *evdev.InputDevice, code uint16) bool {
	needle := evdev.EvCode(code)
	for _, c := range device.CapableEvents(evdev.EV_KEY) {
		if c == needle {
			return true
		}
	}
	return false
}

func deviceSupportsAnyCode(device *evdev.InputDevice, codes map[uint16]struct{}) bool {
	for code := range codes {
		if deviceSupportsCode(device, code) {
			return true
		}
	}
	return false
}

func deviceIsVirtual(device *evdev.InputDevice, name string) bool {
	id, err := device.InputID()
	if err == nil && id.BusType == uint16(evdev.BUS_VIRTUAL) {
		return true
	}
	lower := strings.ToLower(name)
	for _, token := range []string{"virtual", "uinput", "ydotool", "textlift"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func findDevicesByCodes(codes map[uint16]struct{}) ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	matches := make([]DeviceInfo, 0)
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			continue
		}

		name := path.Name
		if actualName, err := dev.Name(); err == nil && actualName != "" {
			name = actualName
		}
		if deviceSupportsAnyCode(dev, codes) {
			matches = append(matches, DeviceInfo{
				Path:      path.Path,
				Name:      name,
				IsVirtual: deviceIsVirtual(dev, name),
			})
		}
		_ = dev.Close()
	}

	if len(matches) == 0 {
		return matches, nil
	}

	// Virtual devices echo our own injected chords; only fall back to them
	// when nothing real is available.
	pool := make([]DeviceInfo, 0, len(matches))
	for _, match := range matches {
		if !match.IsVirtual {
			pool = append(pool, match)
		}
	}
	if len(pool) == 0 {
		pool = matches
	}

	sort.Slice(pool, func(i, j int) bool {
		return pool[i].Path < pool[j].Path
	})
	return pool, nil
}

func formatCodeNames(codes map[uint16]struct{}) string {
	names := make([]string, 0, len(codes))
	for code := range codes {
		names = append(names, FormatCodeName(code))
	}
	sort.Strings(names)
	return strings.Join(names, "/")
}
