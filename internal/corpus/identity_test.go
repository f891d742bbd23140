package corpus

import (
	"errors"
	"reflect"
	"testing"
)

func TestIdentity(t *testing.T) {
	tests := []struct{ in, want string }{
		{"NeurIPS 2024", "neurips_2024"},
		{"ICML\t2023 Workshop", "icml_2023_workshop"},
		{"two  spaces", "two__spaces"},
		{"already_ok", "already_ok"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Identity(tt.in); got != tt.want {
			t.Errorf("Identity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConferences(t *testing.T) {
	c := Conferences{
		"NeurIPS 2023": "NeurIPS.cc/2023/Conference/-/Submission",
		"NeurIPS 2025": "NeurIPS.cc/2025/Conference/-/Submission",
	}
	inv, err := c.Invitation("NeurIPS 2025")
	if err != nil || inv != "NeurIPS.cc/2025/Conference/-/Submission" {
		t.Errorf("Invitation=%q err=%v", inv, err)
	}
	if _, err := c.Invitation("ICML 1999"); !errors.Is(err, ErrUnknownConference) {
		t.Errorf("expected ErrUnknownConference, got %v", err)
	}
	if got := c.Names(); !reflect.DeepEqual(got, []string{"NeurIPS 2025", "NeurIPS 2023"}) {
		t.Errorf("Names=%v", got)
	}
	if name, ok := c.ByIdentity("neurips_2023"); !ok || name != "NeurIPS 2023" {
		t.Errorf("ByIdentity=%q %v", name, ok)
	}
}
