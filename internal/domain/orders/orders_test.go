package orders

import "testing"

func TestValidTransitionAllowsDraftToSubmitted(t *testing.T) {
	if err := ValidTransition(StatusDraft, StatusSubmitted); err != nil {
		t.Errorf("draft->submitted should be valid, got %v", err)
	}
}

func TestValidTransitionAllowsSubmittedToPaidOrCancelled(t *testing.T) {
	if err := ValidTransition(StatusSubmitted, StatusPaid); err != nil {
		t.Errorf("submitted->paid should be valid, got %v", err)
	}
	if err := ValidTransition(StatusSubmitted, StatusCancelled); err != nil {
		t.Errorf("submitted->cancelled should be valid, got %v", err)
	}
}

func TestValidTransitionRejectsDraftToPaid(t *testing.T) {
	if err := ValidTransition(StatusDraft, StatusPaid); err == nil {
		t.Error("draft->paid should be rejected, got nil error")
	}
}

func TestValidTransitionRejectsTerminalStateChange(t *testing.T) {
	if err := ValidTransition(StatusPaid, StatusCancelled); err == nil {
		t.Error("paid->cancelled should be rejected, got nil error")
	}
	if err := ValidTransition(StatusCancelled, StatusPaid); err == nil {
		t.Error("cancelled->paid should be rejected, got nil error")
	}
}

func TestValidTransitionAllowsIdempotentTerminalReapplication(t *testing.T) {
	if err := ValidTransition(StatusPaid, StatusPaid); err != nil {
		t.Errorf("paid->paid should be idempotent, got %v", err)
	}
	if err := ValidTransition(StatusCancelled, StatusCancelled); err != nil {
		t.Errorf("cancelled->cancelled should be idempotent, got %v", err)
	}
}
