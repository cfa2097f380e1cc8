package main

import "testing"

func TestParseFontRules(t *testing.T) {
	rules, err := parseFontRules([]string{"Arial Unicode=Noto Sans Regular", "Custom=Noto Sans Bold"})
	if err != nil {
		t.Fatalf("parseFontRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("len = %d", len(rules))
	}
	if rules[0].From != "Arial Unicode" || rules[0].To != "Noto Sans Regular" {
		t.Errorf("rules[0] = %+v", rules[0])
	}

	for _, bad := range []string{"no-separator", "=empty-from", "empty-to="} {
		if _, err := parseFontRules([]string{bad}); err == nil {
			t.Errorf("parseFontRules(%q) should fail", bad)
		}
	}
}
