package radio

import "testing"

func TestIdleTxRequestTransitionsToTransmitting(t *testing.T) {
	m := &Machine[FakePhyEvent]{}
	d := NewFakeDriver()

	resp, err := m.HandleEvent(d, Event[FakePhyEvent]{Kind: TxRequest, TxBuf: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Kind != RespTransmitting {
		t.Fatalf("expected RespTransmitting, got %v", resp.Kind)
	}
	if m.State() != Transmitting {
		t.Fatalf("expected Transmitting state, got %v", m.State())
	}
	if !d.ConfiguredTX || d.SentCount != 1 {
		t.Fatalf("driver not driven as expected: %+v", d)
	}
}

func TestIdleRxRequestTransitionsToReceiving(t *testing.T) {
	m := &Machine[FakePhyEvent]{}
	d := NewFakeDriver()

	resp, err := m.HandleEvent(d, Event[FakePhyEvent]{Kind: RxRequest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Kind != RespReceiving || m.State() != Receiving {
		t.Fatalf("expected Receiving, got resp=%v state=%v", resp.Kind, m.State())
	}
	if !d.ConfiguredRX || d.RxSetCount != 1 {
		t.Fatalf("driver not driven as expected: %+v", d)
	}
}

func TestIdleRejectsPhyEventAndTimeout(t *testing.T) {
	m := &Machine[FakePhyEvent]{}
	d := NewFakeDriver()

	for _, kind := range []EventKind{PhyEvent, Timeout} {
		if _, err := m.HandleEvent(d, Event[FakePhyEvent]{Kind: kind}); err != ErrBadState {
			t.Fatalf("expected ErrBadState for %v, got %v", kind, err)
		}
		if m.State() != Idle {
			t.Fatalf("bad state request must not move the machine, got %v", m.State())
		}
	}
}

func TestTransmittingTxDoneReturnsToIdle(t *testing.T) {
	m := &Machine[FakePhyEvent]{}
	d := NewFakeDriver()
	if _, err := m.HandleEvent(d, Event[FakePhyEvent]{Kind: TxRequest}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	resp, err := m.HandleEvent(d, Event[FakePhyEvent]{
		Kind: PhyEvent,
		Phy:  FakePhyEvent{Response: &PhyResponse{Kind: PhyTxDone, TxDoneMs: 42}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Kind != RespTxComplete || resp.TxDoneMs != 42 {
		t.Fatalf("expected TxComplete(42), got %+v", resp)
	}
	if m.State() != Idle {
		t.Fatalf("expected Idle after TxDone, got %v", m.State())
	}
}

func TestTransmittingIgnoresSpuriousPhyEvent(t *testing.T) {
	m := &Machine[FakePhyEvent]{}
	d := NewFakeDriver()
	m.HandleEvent(d, Event[FakePhyEvent]{Kind: TxRequest})

	resp, err := m.HandleEvent(d, Event[FakePhyEvent]{Kind: PhyEvent, Phy: FakePhyEvent{Response: nil}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Kind != RespTransmitting || m.State() != Transmitting {
		t.Fatalf("spurious phy event should keep Transmitting, got resp=%v state=%v", resp.Kind, m.State())
	}
}

func TestTransmittingTimeoutCancelsTx(t *testing.T) {
	m := &Machine[FakePhyEvent]{}
	d := NewFakeDriver()
	m.HandleEvent(d, Event[FakePhyEvent]{Kind: TxRequest})

	resp, err := m.HandleEvent(d, Event[FakePhyEvent]{Kind: Timeout})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Kind != RespIdle || m.State() != Idle {
		t.Fatalf("expected Idle after timeout cancel, got resp=%v state=%v", resp.Kind, m.State())
	}
}

func TestTransmittingTimeoutSurfacesPhyError(t *testing.T) {
	m := &Machine[FakePhyEvent]{}
	d := NewFakeDriver()
	d.CancelTXErr = &PhyError{Kind: PhyErrTx}
	m.HandleEvent(d, Event[FakePhyEvent]{Kind: TxRequest})

	_, err := m.HandleEvent(d, Event[FakePhyEvent]{Kind: Timeout})
	if err == nil {
		t.Fatalf("expected cancel failure to surface")
	}
	if m.State() != Idle {
		t.Fatalf("state must still settle to Idle even on cancel failure, got %v", m.State())
	}
}

func TestReceivingRxDoneReturnsToIdle(t *testing.T) {
	m := &Machine[FakePhyEvent]{}
	d := NewFakeDriver()
	m.HandleEvent(d, Event[FakePhyEvent]{Kind: RxRequest})

	quality := RxQuality{RSSI: -80, SNR: 5}
	resp, err := m.HandleEvent(d, Event[FakePhyEvent]{
		Kind: PhyEvent,
		Phy:  FakePhyEvent{Response: &PhyResponse{Kind: PhyRxDone, RxQuality: quality}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Kind != RespRx || resp.RxQuality != quality {
		t.Fatalf("expected Rx(quality), got %+v", resp)
	}
	if m.State() != Idle {
		t.Fatalf("expected Idle after RxDone, got %v", m.State())
	}
}

func TestTransmittingRejectsTxAndRxRequest(t *testing.T) {
	m := &Machine[FakePhyEvent]{}
	d := NewFakeDriver()
	m.HandleEvent(d, Event[FakePhyEvent]{Kind: TxRequest})

	for _, kind := range []EventKind{TxRequest, RxRequest} {
		if _, err := m.HandleEvent(d, Event[FakePhyEvent]{Kind: kind}); err != ErrBadState {
			t.Fatalf("expected ErrBadState for %v while Transmitting, got %v", kind, err)
		}
	}
}
