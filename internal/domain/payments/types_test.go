package payments

import "testing"

func TestValidStatusTransitionFromPendingAllowsAnyKnownStatus(t *testing.T) {
	for _, to := range []Status{StatusPending, StatusPaid, StatusCancelled, StatusExpired} {
		if !ValidStatusTransition(StatusPending, to) {
			t.Errorf("pending -> %s should be valid", to)
		}
	}
}

func TestValidStatusTransitionTerminalStatusesAreFinal(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
	}{
		{StatusPaid, StatusPending},
		{StatusPaid, StatusCancelled},
		{StatusCancelled, StatusPaid},
		{StatusExpired, StatusPaid},
	}
	for _, c := range cases {
		if ValidStatusTransition(c.from, c.to) {
			t.Errorf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}

func TestValidStatusTransitionUnknownFromIsRejected(t *testing.T) {
	if ValidStatusTransition(Status("bogus"), StatusPaid) {
		t.Error("unknown from-status should never be valid")
	}
}
