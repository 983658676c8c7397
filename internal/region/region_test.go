package region

import (
	"slices"
	"testing"
)

func TestApplies(t *testing.T) {
	tests := []struct {
		title  string
		target string
		want   bool
	}{
		{"Family Day (AB, BC)", "BC", true},
		{"Family Day (AB, BC)", "ON", false},
		{"Family Day (AB, BC)", "bc", true},
		{"Victoria Day", "BC", true},
		{"Victoria Day", "QC", true},
		{"Remembrance Day (Observed)", "BC", true},
		{"Remembrance Day (Observed)", "NU", true},
		{"B.C. Day (B.C.)", "BC", true},
		{"Civic Holiday (N.W.T.)", "BC", false},
		{"Civic Holiday (N.W.T.)", "NWT", true},
		{"Islander Day (PEI)", "BC", false},
		{"St. Jean Baptiste (QC) (Observed)", "BC", false},
		{"Day After (Observed) (bc)", "BC", true},
		{"Labour Day (USA)", "BC", true},
	}
	for _, tt := range tests {
		if got := Applies(tt.title, tt.target); got != tt.want {
			t.Errorf("Applies(%q, %q) = %v, want %v", tt.title, tt.target, got, tt.want)
		}
	}
}

func TestTags(t *testing.T) {
	got := Tags("Family Day (BC, AB) (bc)")
	if want := []string{"AB", "BC"}; !slices.Equal(got, want) {
		t.Errorf("Tags = %v, want %v", got, want)
	}
	if got := Tags("Canada Day"); len(got) != 0 {
		t.Errorf("Tags = %v, want none", got)
	}
}

func TestDisplayTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Family Day (AB, BC)", "Family Day"},
		{"Family Day (AB,BC,ON)  ", "Family Day"},
		{"Remembrance Day (Observed)", "Remembrance Day (Observed)"},
		{"Canada Day", "Canada Day"},
		{"Labour Day (USA)", "Labour Day (USA)"},
		{"Heritage Day (NS) Observance", "Heritage Day (NS) Observance"},
		{"  Boxing Day  ", "Boxing Day"},
	}
	for _, tt := range tests {
		if got := DisplayTitle(tt.in); got != tt.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Only groups made entirely of known codes are region annotations. Anything
// else, even if it looks like a code, stays in the displayed title and does
// not restrict where the holiday applies.
func TestDisplayTitle_KeepsGroupsWithUnknownCodes(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Labour Day (USA)", "Labour Day (USA)"},
		{"Boxing Day (UK)", "Boxing Day (UK)"},
		{"Family Day (AB, XX)", "Family Day (AB, XX)"},
		{"Family Day (AB, BC)", "Family Day"},
	}
	for _, tt := range tests {
		if got := DisplayTitle(tt.in); got != tt.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if !Applies("Labour Day (USA)", "BC") || !Applies("Boxing Day (UK)", "ON") {
		t.Error("titles without known codes should apply everywhere")
	}
}

func TestKnownAndCodes(t *testing.T) {
	if !Known("bc") || !Known(" PEI ") {
		t.Error("expected bc and PEI to be known")
	}
	if Known("XX") {
		t.Error("XX must not be known")
	}
	codes := Codes()
	if len(codes) != 15 || !slices.IsSorted(codes) {
		t.Errorf("Codes() = %v", codes)
	}
}
