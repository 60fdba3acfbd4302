package rides

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAssigned, true},
		{StatusPending, StatusCancelled, true},
		{StatusAssigned, StatusEnRoute, true},
		{StatusAssigned, StatusCancelled, true},
		{StatusEnRoute, StatusCompleted, true},

		{StatusPending, StatusEnRoute, false},
		{StatusPending, StatusCompleted, false},
		{StatusAssigned, StatusCompleted, false},
		{StatusEnRoute, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusAssigned, false},
		{StatusPending, StatusPending, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAssigned, StatusEnRoute, StatusCompleted, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []Status{"", "unknown", "PENDING", "done"} {
		if s.Valid() {
			t.Errorf("%s should be invalid", s)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:   false,
		StatusAssigned:  false,
		StatusEnRoute:   false,
		StatusCompleted: true,
		StatusCancelled: true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestSummaryCarriesDriverID(t *testing.T) {
	r := &Ride{ID: "r1", PassengerID: "p1", Status: StatusAssigned}
	if got := r.Summary().DriverID; got != "" {
		t.Fatalf("expected empty driver id, got %q", got)
	}
	d := "d1"
	r.DriverID = &d
	if got := r.Summary().DriverID; got != "d1" {
		t.Fatalf("expected d1, got %q", got)
	}
}
