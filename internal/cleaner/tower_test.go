package cleaner

import "testing"

func TestNormalizeTower(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"   ", ""},
		{"N/A", ""},
		{"n/a", ""},
		{"na", ""},
		{"NA", ""},
		{" Na ", ""},
		{"  West Tower ", "West Tower"},
		{"A", "A"},
		{"nab", "nab"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeTower(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeTower(%q) = %q; want %q", tt.input, got, tt.expected)
			}
			if nullTokens[got] {
				t.Errorf("NormalizeTower(%q) returned null-like token %q", tt.input, got)
			}
		})
	}
}
