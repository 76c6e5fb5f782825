package wininput

import (
	"fmt"
	"strconv"
	"strings"
)

// Linux input-event key codes, the shared trigger vocabulary across the
// backends. The hook callback translates Windows virtual keys into these.
const (
	codeKEYEsc        uint16 = 1
	codeKEY1          uint16 = 2
	codeKEY2          uint16 = 3
	codeKEY3          uint16 = 4
	codeKEY4          uint16 = 5
	codeKEY5          uint16 = 6
	codeKEY6          uint16 = 7
	codeKEY7          uint16 = 8
	codeKEY8          uint16 = 9
	codeKEY9          uint16 = 10
	codeKEY0          uint16 = 11
	codeKEYTab        uint16 = 15
	codeKEYQ          uint16 = 16
	codeKEYW          uint16 = 17
	codeKEYE          uint16 = 18
	codeKEYR          uint16 = 19
	codeKEYT          uint16 = 20
	codeKEYY          uint16 = 21
	codeKEYU          uint16 = 22
	codeKEYI          uint16 = 23
	codeKEYO          uint16 = 24
	codeKEYP          uint16 = 25
	codeKEYEnter      uint16 = 28
	codeKEYLeftCtrl   uint16 = 29
	codeKEYA          uint16 = 30
	codeKEYS          uint16 = 31
	codeKEYD          uint16 = 32
	codeKEYF          uint16 = 33
	codeKEYG          uint16 = 34
	codeKEYH          uint16 = 35
	codeKEYJ          uint16 = 36
	codeKEYK          uint16 = 37
	codeKEYL          uint16 = 38
	codeKEYLeftShift  uint16 = 42
	codeKEYZ          uint16 = 44
	codeKEYX          uint16 = 45
	codeKEYC          uint16 = 46
	codeKEYV          uint16 = 47
	codeKEYB          uint16 = 48
	codeKEYN          uint16 = 49
	codeKEYM          uint16 = 50
	codeKEYRightShift uint16 = 54
	codeKEYLeftAlt    uint16 = 56
	codeKEYSpace      uint16 = 57
	codeKEYCapsLock   uint16 = 58
	codeKEYF1         uint16 = 59
	codeKEYF2         uint16 = 60
	codeKEYF3         uint16 = 61
	codeKEYF4         uint16 = 62
	codeKEYF5         uint16 = 63
	codeKEYF6         uint16 = 64
	codeKEYF7         uint16 = 65
	codeKEYF8         uint16 = 66
	codeKEYF9         uint16 = 67
	codeKEYF10        uint16 = 68
	codeKEYF11        uint16 = 87
	codeKEYF12        uint16 = 88
	codeKEYRightCtrl  uint16 = 97
	codeKEYRightAlt   uint16 = 100
	codeKEYPause      uint16 = 119
	codeKEYLeftMeta   uint16 = 125
	codeKEYRightMeta  uint16 = 126

	CodeLeftShift  = codeKEYLeftShift
	CodeRightShift = codeKEYRightShift
)

// Windows virtual-key codes.
const (
	vkTAB      uint32 = 0x09
	vkRETURN   uint32 = 0x0D
	vkSHIFT    uint32 = 0x10
	vkCONTROL  uint32 = 0x11
	vkPAUSE    uint32 = 0x13
	vkCAPITAL  uint32 = 0x14
	vkESCAPE   uint32 = 0x1B
	vkSPACE    uint32 = 0x20
	vk0        uint32 = 0x30
	vkA        uint32 = 0x41
	vkC        uint32 = 0x43
	vkLWIN     uint32 = 0x5B
	vkRWIN     uint32 = 0x5C
	vkF1       uint32 = 0x70
	vkF8       uint32 = 0x77
	vkLSHIFT   uint32 = 0xA0
	vkRSHIFT   uint32 = 0xA1
	vkLCONTROL uint32 = 0xA2
	vkRCONTROL uint32 = 0xA3
	vkLMENU    uint32 = 0xA4
	vkRMENU    uint32 = 0xA5

	llkhfExtended uint32 = 0x01
)

var codeNameToCode = map[string]uint16{
	"KEY_ESC":        codeKEYEsc,
	"KEY_TAB":        codeKEYTab,
	"KEY_ENTER":      codeKEYEnter,
	"KEY_SPACE":      codeKEYSpace,
	"KEY_CAPSLOCK":   codeKEYCapsLock,
	"KEY_PAUSE":      codeKEYPause,
	"KEY_LEFTSHIFT":  codeKEYLeftShift,
	"KEY_RIGHTSHIFT": codeKEYRightShift,
	"KEY_LEFTCTRL":   codeKEYLeftCtrl,
	"KEY_RIGHTCTRL":  codeKEYRightCtrl,
	"KEY_LEFTALT":    codeKEYLeftAlt,
	"KEY_RIGHTALT":   codeKEYRightAlt,
	"KEY_LEFTMETA":   codeKEYLeftMeta,
	"KEY_RIGHTMETA":  codeKEYRightMeta,
	"KEY_1":          codeKEY1,
	"KEY_2":          codeKEY2,
	"KEY_3":          codeKEY3,
	"KEY_4":          codeKEY4,
	"KEY_5":          codeKEY5,
	"KEY_6":          codeKEY6,
	"KEY_7":          codeKEY7,
	"KEY_8":          codeKEY8,
	"KEY_9":          codeKEY9,
	"KEY_0":          codeKEY0,
	"KEY_Q":          codeKEYQ,
	"KEY_W":          codeKEYW,
	"KEY_E":          codeKEYE,
	"KEY_R":          codeKEYR,
	"KEY_T":          codeKEYT,
	"KEY_Y":          codeKEYY,
	"KEY_U":          codeKEYU,
	"KEY_I":          codeKEYI,
	"KEY_O":          codeKEYO,
	"KEY_P":          codeKEYP,
	"KEY_A":          codeKEYA,
	"KEY_S":          codeKEYS,
	"KEY_D":          codeKEYD,
	"KEY_F":          codeKEYF,
	"KEY_G":          codeKEYG,
	"KEY_H":          codeKEYH,
	"KEY_J":          codeKEYJ,
	"KEY_K":          codeKEYK,
	"KEY_L":          codeKEYL,
	"KEY_Z":          codeKEYZ,
	"KEY_X":          codeKEYX,
	"KEY_C":          codeKEYC,
	"KEY_V":          codeKEYV,
	"KEY_B":          codeKEYB,
	"KEY_N":          codeKEYN,
	"KEY_M":          codeKEYM,
	"KEY_F1":         codeKEYF1,
	"KEY_F2":         codeKEYF2,
	"KEY_F3":         codeKEYF3,
	"KEY_F4":         codeKEYF4,
	"KEY_F5":         codeKEYF5,
	"KEY_F6":         codeKEYF6,
	"KEY_F7":         codeKEYF7,
	"KEY_F8":         codeKEYF8,
	"KEY_F9":         codeKEYF9,
	"KEY_F10":        codeKEYF10,
	"KEY_F11":        codeKEYF11,
	"KEY_F12":        codeKEYF12,
}

var codeToVKTable = map[uint16]uint32{
	codeKEYEsc:        vkESCAPE,
	codeKEYTab:        vkTAB,
	codeKEYEnter:      vkRETURN,
	codeKEYSpace:      vkSPACE,
	codeKEYCapsLock:   vkCAPITAL,
	codeKEYPause:      vkPAUSE,
	codeKEYLeftShift:  vkLSHIFT,
	codeKEYRightShift: vkRSHIFT,
	codeKEYLeftCtrl:   vkLCONTROL,
	codeKEYRightCtrl:  vkRCONTROL,
	codeKEYLeftAlt:    vkLMENU,
	codeKEYRightAlt:   vkRMENU,
	codeKEYLeftMeta:   vkLWIN,
	codeKEYRightMeta:  vkRWIN,
}

var (
	codeToName = map[uint16]string{}
	vkToCode   = map[uint32]uint16{}
)

func init() {
	for name, code := range codeNameToCode {
		codeToName[code] = name
	}

	for _, letter := range "QWERTYUIOPASDFGHJKLZXCVBNM" {
		code := codeNameToCode["KEY_"+string(letter)]
		codeToVKTable[code] = vkA + uint32(letter-'A')
	}
	for digit := 0; digit <= 9; digit++ {
		code := codeNameToCode["KEY_"+strconv.Itoa(digit)]
		codeToVKTable[code] = vk0 + uint32(digit)
	}
	fCodes := []uint16{
		codeKEYF1, codeKEYF2, codeKEYF3, codeKEYF4, codeKEYF5, codeKEYF6,
		codeKEYF7, codeKEYF8, codeKEYF9, codeKEYF10, codeKEYF11, codeKEYF12,
	}
	for i, code := range fCodes {
		codeToVKTable[code] = vkF1 + uint32(i)
	}

	for code, vk := range codeToVKTable {
		vkToCode[vk] = code
	}
	// Unsided modifier VKs resolve to the left-hand codes.
	vkToCode[vkSHIFT] = codeKEYLeftShift
	vkToCode[vkCONTROL] = codeKEYLeftCtrl
}

func ParseCode(value string) (uint16, error) {
	raw := strings.ToUpper(strings.TrimSpace(value))
	if raw == "" {
		return 0, fmt.Errorf("trigger code is empty")
	}
	if code, ok := codeNameToCode[raw]; ok {
		return code, nil
	}

	parsed, err := strconv.ParseInt(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown trigger %q: use names like KEY_LEFTSHIFT/KEY_F8 or numeric code", value)
	}
	if parsed < 0 || parsed > 0xFFFF {
		return 0, fmt.Errorf("trigger code out of range: %d", parsed)
	}
	return uint16(parsed), nil
}

func FormatCodeName(code uint16) string {
	if name, ok := codeToName[code]; ok {
		return name
	}
	return strconv.Itoa(int(code))
}

// CodeFromVK maps a low-level hook virtual key to a linux key code. The
// hook normally reports sided shift/ctrl VKs already; the unsided ones are
// disambiguated with the extended flag.
func CodeFromVK(vk uint32, flags uint32, scanCode uint32) (uint16, bool) {
	switch vk {
	case vkSHIFT:
		if flags&llkhfExtended != 0 {
			return codeKEYRightShift, true
		}
		return codeKEYLeftShift, true
	case vkCONTROL:
		if flags&llkhfExtended != 0 {
			return codeKEYRightCtrl, true
		}
		return codeKEYLeftCtrl, true
	}
	code, ok := vkToCode[vk]
	return code, ok
}

func CodeToVK(code uint16) (uint32, bool) {
	vk, ok := codeToVKTable[code]
	return vk, ok
}
