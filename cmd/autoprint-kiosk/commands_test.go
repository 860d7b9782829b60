package main

import (
	"testing"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"digits", "1234", "1234", false},
		{"lower case upper-cased", "ab12", "AB12", false},
		{"max length", "ABCD1234", "ABCD1234", false},
		{"too long", "ABCD12345", "", true},
		{"empty", "", "", true},
		{"submit key", "AB#", "", true},
		{"punctuation", "A-1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeIdentifier(tt.raw, 8)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeIdentifier(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("normalizeIdentifier(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "(open network)" {
		t.Errorf("maskSecret(\"\") = %q", got)
	}
	if got := maskSecret("hunter2"); got != "********" {
		t.Errorf("maskSecret(secret) = %q", got)
	}
}
