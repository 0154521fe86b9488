package adrstate

import "testing"

func TestTrackerStaysNoneBelowLimit(t *testing.T) {
	var tr Tracker
	for i := 0; i < ADRAckLimit-1; i++ {
		if code := tr.OnUplinkSent(); code != CodeNone {
			t.Fatalf("uplink %d: expected CodeNone, got %v", i, code)
		}
	}
}

func TestTrackerRequestsAckAtLimit(t *testing.T) {
	var tr Tracker
	var last Code
	for i := 0; i < ADRAckLimit; i++ {
		last = tr.OnUplinkSent()
	}
	if last != CodeRequestAck {
		t.Fatalf("expected CodeRequestAck at limit, got %v", last)
	}
	if !tr.ShouldSetADRAckReq() {
		t.Fatalf("expected ShouldSetADRAckReq true at limit")
	}
}

func TestTrackerRequestsRejoinAfterDelay(t *testing.T) {
	var tr Tracker
	var last Code
	for i := 0; i < ADRAckLimit+ADRAckDelay; i++ {
		last = tr.OnUplinkSent()
	}
	if last != CodeRejoin {
		t.Fatalf("expected CodeRejoin after limit+delay, got %v", last)
	}
}

func TestOnDownlinkAcceptedResetsCounter(t *testing.T) {
	var tr Tracker
	for i := 0; i < ADRAckLimit; i++ {
		tr.OnUplinkSent()
	}
	tr.OnDownlinkAccepted()
	if tr.ShouldSetADRAckReq() {
		t.Fatalf("expected counter reset after accepted downlink")
	}
	if code := tr.OnUplinkSent(); code != CodeNone {
		t.Fatalf("expected CodeNone immediately after reset, got %v", code)
	}
}
