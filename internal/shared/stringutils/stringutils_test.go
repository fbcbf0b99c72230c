package stringutils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate long = %q", got)
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Query":     "query",
		"MaxTokens": "max_tokens",
		"A":         "a",
		"lower":     "lower",
	}
	for in, want := range cases {
		if got := SnakeCase(in); got != want {
			t.Errorf("SnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFieldName(t *testing.T) {
	if got := FieldName("Query", ""); got != "query" {
		t.Errorf("no tag = %q", got)
	}
	if got := FieldName("Query", "q,omitempty"); got != "q" {
		t.Errorf("tag = %q", got)
	}
	if got := FieldName("Query", "-"); got != "" {
		t.Errorf("hidden = %q", got)
	}
}
