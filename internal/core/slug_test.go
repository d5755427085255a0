package core

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Acme Collective", "acme-collective"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Rocket---Labs", "rocket-labs"},
		{"Berlin's Best (2024)", "berlin-s-best-2024"},
		{"ÜBER Startups", "ber-startups"},
		{"already-a-slug", "already-a-slug"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Slugify(tt.input)
			if got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if got != "" && !IsValidSlug(got) {
				t.Errorf("Slugify(%q) = %q, which IsValidSlug rejects", tt.input, got)
			}
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"acme", true},
		{"acme-collective", true},
		{"a1-b2-c3", true},
		{"", false},
		{"-acme", false},
		{"acme-", false},
		{"acme--collective", false},
		{"Acme", false},
		{"acme collective", false},
		{"acme_collective", false},
	}

	for _, tt := range tests {
		if got := IsValidSlug(tt.input); got != tt.want {
			t.Errorf("IsValidSlug(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
