package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("STORYFORGE_TEST_HOST", "db.internal")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "set variable", in: "${STORYFORGE_TEST_HOST}", want: "db.internal"},
		{name: "set variable ignores default", in: "${STORYFORGE_TEST_HOST:localhost}", want: "db.internal"},
		{name: "unset with default", in: "${STORYFORGE_TEST_MISSING:localhost}", want: "localhost"},
		{name: "unset with empty default", in: "${STORYFORGE_TEST_MISSING:}", want: ""},
		{name: "unset without default kept verbatim", in: "${STORYFORGE_TEST_MISSING}", want: "${STORYFORGE_TEST_MISSING}"},
		{name: "embedded in text", in: "postgres://${STORYFORGE_TEST_HOST:localhost}:5432/app", want: "postgres://db.internal:5432/app"},
		{name: "plain text untouched", in: "no placeholders here", want: "no placeholders here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandEnv(tt.in); got != tt.want {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
