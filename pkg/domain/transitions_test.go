package domain

import "testing"

func TestTransitionGraph(t *testing.T) {
	cases := []struct {
		from, to AnomalyStatus
		allowed  bool
	}{
		{StatusOpen, StatusInProgress, true},
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusResolved, false},
		{StatusOpen, StatusOpen, false},
		{StatusInProgress, StatusResolved, true},
		{StatusInProgress, StatusClosed, true},
		{StatusInProgress, StatusOpen, false},
		{StatusInProgress, StatusInProgress, false},
		{StatusResolved, StatusClosed, true},
		{StatusResolved, StatusInProgress, true},
		{StatusResolved, StatusOpen, false},
		{StatusResolved, StatusResolved, false},
		{StatusClosed, StatusOpen, true},
		{StatusClosed, StatusInProgress, false},
		{StatusClosed, StatusResolved, false},
		{StatusClosed, StatusClosed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %t, want %t", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTransitionGraphIsExhaustive(t *testing.T) {
	all := []AnomalyStatus{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
	for _, from := range all {
		targets := AllowedTransitions(from)
		if len(targets) == 0 {
			t.Fatalf("status %s has no outgoing transitions", from)
		}
		for _, to := range targets {
			if !ValidAnomalyStatus(to) {
				t.Fatalf("transition %s -> %s targets unknown status", from, to)
			}
			if to == from {
				t.Fatalf("status %s allows a self-loop", from)
			}
		}
	}
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	first := AllowedTransitions(StatusOpen)
	first[0] = StatusResolved
	second := AllowedTransitions(StatusOpen)
	if second[0] == StatusResolved {
		t.Fatal("mutating the returned slice altered the transition graph")
	}
}

func TestValidAnomalyStatus(t *testing.T) {
	for _, s := range []AnomalyStatus{StatusOpen, StatusInProgress, StatusResolved, StatusClosed} {
		if !ValidAnomalyStatus(s) {
			t.Errorf("status %s should be valid", s)
		}
	}
	for _, s := range []AnomalyStatus{"", "pending", "OPEN", "done"} {
		if ValidAnomalyStatus(s) {
			t.Errorf("status %q should be invalid", s)
		}
	}
}
