package wininput

import "testing"

func TestParseAndFormatKeyCodes(t *testing.T) {
	tests := []struct {
		raw      string
		expected uint16
	}{
		{raw: "KEY_LEFTSHIFT", expected: CodeLeftShift},
		{raw: "key_rightshift", expected: CodeRightShift},
		{raw: "KEY_F8", expected: codeKEYF8},
		{raw: "42", expected: CodeLeftShift},
	}

	for _, tc := range tests {
		got, err := ParseCode(tc.raw)
		if err != nil {
			t.Fatalf("ParseCode(%q) returned error: %v", tc.raw, err)
		}
		if got != tc.expected {
			t.Fatalf("ParseCode(%q)=%d, want %d", tc.raw, got, tc.expected)
		}
	}

	if name := FormatCodeName(CodeRightShift); name != "KEY_RIGHTSHIFT" {
		t.Fatalf("FormatCodeName(CodeRightShift)=%q, want KEY_RIGHTSHIFT", name)
	}
	if _, err := ParseCode("KEY_BOGUS"); err == nil {
		t.Fatalf("ParseCode(KEY_BOGUS) should fail")
	}
}

func TestCodeFromVKMappings(t *testing.T) {
	if code, ok := CodeFromVK(vkA, 0, 0); !ok || code != codeKEYA {
		t.Fatalf("CodeFromVK(vkA)=%d,%v, want %d,true", code, ok, codeKEYA)
	}

	if code, ok := CodeFromVK(vkLSHIFT, 0, 0); !ok || code != CodeLeftShift {
		t.Fatalf("CodeFromVK(vkLSHIFT)=%d,%v, want %d,true", code, ok, CodeLeftShift)
	}

	// The unsided VK falls back to left, extended flag means right.
	if code, ok := CodeFromVK(vkSHIFT, 0, 0); !ok || code != CodeLeftShift {
		t.Fatalf("CodeFromVK(vkSHIFT)=%d,%v, want %d,true", code, ok, CodeLeftShift)
	}
	if code, ok := CodeFromVK(vkSHIFT, llkhfExtended, 0); !ok || code != CodeRightShift {
		t.Fatalf("CodeFromVK(vkSHIFT,extended)=%d,%v, want %d,true", code, ok, CodeRightShift)
	}
}

func TestCodeToVKMappings(t *testing.T) {
	if vk, ok := CodeToVK(codeKEYF8); !ok || vk != vkF8 {
		t.Fatalf("CodeToVK(KEY_F8)=%d,%v, want %d,true", vk, ok, vkF8)
	}
	if vk, ok := CodeToVK(codeKEYC); !ok || vk != vkC {
		t.Fatalf("CodeToVK(KEY_C)=%d,%v, want %d,true", vk, ok, vkC)
	}
	if _, ok := CodeToVK(0xFFFF); ok {
		t.Fatalf("CodeToVK(unknown) should report false")
	}
}
