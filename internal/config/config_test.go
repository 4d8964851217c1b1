package config

import "testing"

func TestTinyValidates(t *testing.T) {
	if err := Tiny().Validate(); err != nil {
		t.Fatalf("Tiny().Validate() = %v, want nil", err)
	}
}

func TestFullValidates(t *testing.T) {
	if err := Full().Validate(); err != nil {
		t.Fatalf("Full().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadTicketSubmissionWindow(t *testing.T) {
	c := Tiny()
	c.TicketSubmissionEnds = c.EpochLength + 1
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() = nil, want an error for TicketSubmissionEnds > EpochLength")
	}
}

func TestSupermajorityAndWonkyThresholds(t *testing.T) {
	c := Tiny() // Validators = 6
	if got := c.SupermajorityThreshold(); got != 5 {
		t.Fatalf("SupermajorityThreshold() = %d, want 5", got)
	}
	if got := c.WonkyThreshold(); got != 2 {
		t.Fatalf("WonkyThreshold() = %d, want 2", got)
	}
}

func TestEpochOfAndSlotInEpoch(t *testing.T) {
	c := Tiny() // EpochLength = 12
	if got := c.EpochOf(13); got != 1 {
		t.Fatalf("EpochOf(13) = %d, want 1", got)
	}
	if got := c.SlotInEpoch(13); got != 1 {
		t.Fatalf("SlotInEpoch(13) = %d, want 1", got)
	}
}
