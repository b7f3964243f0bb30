package ascii

import (
	"testing"

	"netstack/internal/nerr"
)

func TestStrToIPv4Forms(t *testing.T) {
	tests := []struct {
		in   string
		want [4]byte
	}{
		{"127.0.0.1", [4]byte{127, 0, 0, 1}},
		{"192.168.1.64", [4]byte{192, 168, 1, 64}},
		{"255.255.255.0", [4]byte{255, 255, 255, 0}},
		{"0", [4]byte{0, 0, 0, 0}},
		{"16909060", [4]byte{1, 2, 3, 4}}, // "a" form, 0x01020304
		{"1.2.3", [4]byte{1, 2, 0, 3}},     // "a.b.c" form, c = 0x0003
		{"1.65536", [4]byte{1, 1, 0, 0}},  // "a.b" form, b = 0x010000
	}
	for _, tt := range tests {
		got, err := StrToIPv4(tt.in)
		if err != nil {
			t.Fatalf("StrToIPv4(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("StrToIPv4(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStrToIPv4Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", nerr.AsciiInvalidStrLen},
		{"1.2.3.4.5", nerr.AsciiInvalidStrLen},
		{"1..2.3", nerr.AsciiInvalidCharSeq},
		{".1.2.3", nerr.AsciiInvalidCharSeq},
		{"1.2.3.", nerr.AsciiInvalidCharSeq},
		{"192.168.320.1", nerr.AsciiInvalidPartLen},
		{"1.2.3.256", nerr.AsciiInvalidPartLen},
		{"1.2.x.4", nerr.AsciiInvalidChar},
	}
	for _, tt := range tests {
		_, err := StrToIPv4(tt.in)
		if err != tt.want {
			t.Errorf("StrToIPv4(%q) err = %v, want %v", tt.in, err, tt.want)
		}
	}
}

func TestIPv4ToStr(t *testing.T) {
	got := IPv4ToStr([4]byte{192, 168, 1, 1}, false)
	if got != "192.168.1.1" {
		t.Errorf("IPv4ToStr = %q, want %q", got, "192.168.1.1")
	}
	got = IPv4ToStr([4]byte{1, 2, 3, 4}, true)
	if got != "001.002.003.004" {
		t.Errorf("IPv4ToStr (lead zeros) = %q, want %q", got, "001.002.003.004")
	}
}
