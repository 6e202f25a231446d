package tui

import (
	"testing"

	"github.com/geezhu/clash-subscription-merge/pkg/config"
)

func TestValidateField_DuplicateNamesCollideSanitized(t *testing.T) {
	cases := []struct {
		existing string
		entered  string
	}{
		{existing: "a_b", entered: "a/b"},
		{existing: "a/b", entered: "a_b"},
		{existing: "a/b", entered: "a/b"},
		{existing: "A", entered: "A"},
	}
	for _, tc := range cases {
		m := newModel()
		m.sources = []config.SourceConfig{{Name: tc.existing, Port: 7890, URL: "local", Snippet: "a.yaml"}}
		m.inputs[fieldName].SetValue(tc.entered)
		if msg := m.validateField(fieldName); msg == "" {
			t.Fatalf("existing=%q entered=%q: expected duplicate-name rejection", tc.existing, tc.entered)
		}
	}

	m := newModel()
	m.sources = []config.SourceConfig{{Name: "a_b", Port: 7890, URL: "local", Snippet: "a.yaml"}}
	m.inputs[fieldName].SetValue("c")
	if msg := m.validateField(fieldName); msg != "" {
		t.Fatalf("distinct name rejected: %q", msg)
	}
}
