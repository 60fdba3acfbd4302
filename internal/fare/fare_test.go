package fare

import "testing"

func TestEstimate(t *testing.T) {
	cases := []struct {
		name       string
		distanceKm float64
		wantFare   int
		wantEta    int
	}{
		{"zero", 0, 0, 0},
		{"one km", 1, 15, 3},
		{"ten km", 10, 150, 30},
		{"rounds up", 1.5, 23, 5},
		{"rounds down", 1.42, 21, 4},
		{"fractional", 14.44, 217, 43},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotFare, gotEta := Estimate(tc.distanceKm)
			if gotFare != tc.wantFare || gotEta != tc.wantEta {
				t.Fatalf("Estimate(%v) = (%d, %d), want (%d, %d)",
					tc.distanceKm, gotFare, gotEta, tc.wantFare, tc.wantEta)
			}
		})
	}
}
