package common

import (
	"reflect"
	"testing"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"equal", "2.1.0", "2.1.0", 0},
		{"equal with v prefix", "v2.1.0", "2.1.0", 0},
		{"patch newer", "2.1.1", "2.1.0", 1},
		{"minor older", "2.0.9", "2.1.0", -1},
		{"major newer", "3.0", "2.14.1", 1},
		{"two part vs three part", "3.0", "3.0.0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareVersions(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsNewerVersion(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		current   string
		want      bool
	}{
		{"newer major", "3.0.0", "2.3.2", true},
		{"newer minor", "2.4.0", "2.3.2", true},
		{"same version", "2.3.2", "2.3.2", false},
		{"older", "2.3.1", "2.3.2", false},
		{"invalid candidate", "beta", "2.3.2", false},
		{"empty candidate", "", "2.3.2", false},
		{"invalid current", "3.0.0", "latest", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNewerVersion(tt.candidate, tt.current); got != tt.want {
				t.Errorf("IsNewerVersion(%q, %q) = %v, want %v", tt.candidate, tt.current, got, tt.want)
			}
		})
	}
}

func TestExtractVersions(t *testing.T) {
	text := "pandas 3.0.0 is expected after 2.3; see also release 2.14.1"
	got := ExtractVersions(text)
	want := []string{"3.0.0", "2.3", "2.14.1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractVersions() = %v, want %v", got, want)
	}
}

func TestHighestVersion(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		current    string
		want       string
	}{
		{"picks highest newer", []string{"2.4.0", "3.0.0", "2.3.3"}, "2.3.2", "3.0.0"},
		{"skips older and equal", []string{"2.3.2", "2.3.1"}, "2.3.2", ""},
		{"skips invalid", []string{"nightly", "2.4"}, "2.3.2", "2.4"},
		{"empty input", nil, "2.3.2", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HighestVersion(tt.candidates, tt.current); got != tt.want {
				t.Errorf("HighestVersion(%v, %q) = %q, want %q", tt.candidates, tt.current, got, tt.want)
			}
		})
	}
}
