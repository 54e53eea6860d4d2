package db

import (
	"regexp"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ada Lovelace", "ada_lovelace"},
		{"  Grace   B. Hopper\t", "grace_b_hopper"},
		{"Jean-Luc O'Neil", "jean-luc_oneil"},
		{"Zoë", "zo"},
		{"", ""},
		{strings.Repeat("ab", 40), strings.Repeat("ab", 30)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewRecordingID(t *testing.T) {
	re := regexp.MustCompile(`^r1740819600_[0-9a-f]{6}$`)
	a, b := NewRecordingID(1740819600), NewRecordingID(1740819600)
	if !re.MatchString(a) {
		t.Errorf("NewRecordingID = %q", a)
	}
	if a == b {
		t.Errorf("ids should differ: %q", a)
	}
}
