package orchestrator

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"markdown fence", "```json\n{\"movies\":[]}\n```", `{"movies":[]}`, true},
		{"surrounding prose", `Sure! Here you go: {"a":1} hope that helps`, `{"a":1}`, true},
		{"nested objects", `{"a":{"b":{"c":1}}}`, `{"a":{"b":{"c":1}}}`, true},
		{"brace inside string", `{"title":"foo } bar"}`, `{"title":"foo } bar"}`, true},
		{"escaped quote inside string", `{"title":"say \"hi\" {now}"}`, `{"title":"say \"hi\" {now}"}`, true},
		{"trailing second object ignored", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"no object", "no json here", "", false},
		{"unbalanced", `{"a":1`, "", false},
		{"empty input", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.input)
			if ok != tt.ok {
				t.Fatalf("extractJSONObject(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("extractJSONObject(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
