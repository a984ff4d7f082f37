package randx

import "testing"

func TestCorrelationID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := CorrelationID()
		if !IsValidCorrelationID(id) {
			t.Fatalf("generated id %q fails its own validator", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q within 100 generations", id)
		}
		seen[id] = true
	}
}

func TestIsValidCorrelationID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"a1b2c3d4", true},
		{"00000000", true},
		{"a1b2c3d", false},   // too short
		{"a1b2c3d4e", false}, // too long
		{"A1B2C3D4", false},  // uppercase
		{"a1b2c3dg", false},  // non-hex
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidCorrelationID(tc.id); got != tc.want {
			t.Errorf("IsValidCorrelationID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
