package fsm

import "testing"

func TestEndToEndReserveToActive(t *testing.T) {
	s := ConnectionNew

	steps := []struct {
		event Event
		want  State
	}{
		{EventSendReserve, ConnectionReserveChecking},
		{EventReceiveReserveConfirmed, ConnectionReserveHeld},
		{EventSendReserveCommit, ConnectionReserveCommitting},
		{EventReceiveReserveCommitOK, ConnectionReserveCommitted},
		{EventSendProvision, ConnectionProvisioning},
		{EventReceiveProvisionConfirmed, ConnectionProvisioned},
		{EventReceiveDataPlaneUp, ConnectionActive},
	}

	for _, step := range steps {
		next, err := Apply(s, step.event)
		if err != nil {
			t.Fatalf("Apply(%q, %q) failed: %v", s, step.event, err)
		}
		if next != step.want {
			t.Fatalf("Apply(%q, %q) = %q, want %q", s, step.event, next, step.want)
		}
		s = next
	}
}

func TestReleaseSequence(t *testing.T) {
	s := ConnectionActive

	for _, step := range []struct {
		event Event
		want  State
	}{
		{EventSendRelease, ConnectionReleasing},
		{EventReceiveReleaseConfirmed, ConnectionReleased},
		{EventReceiveDataPlaneDown, ConnectionReserveCommitted},
	} {
		next, err := Apply(s, step.event)
		if err != nil {
			t.Fatalf("Apply(%q, %q) failed: %v", s, step.event, err)
		}
		s = next
		if s != step.want {
			t.Fatalf("got %q, want %q", s, step.want)
		}
	}
}

func TestReserveFailedThenRetry(t *testing.T) {
	next, err := Apply(ConnectionReserveChecking, EventReceiveReserveFailed)
	if err != nil || next != ConnectionReserveFailed {
		t.Fatalf("got (%q, %v)", next, err)
	}
	next, err = Apply(next, EventSendReserve)
	if err != nil || next != ConnectionReserveChecking {
		t.Fatalf("retry-resend should succeed: got (%q, %v)", next, err)
	}
}

func TestErrorEventFromActiveAndProvisioned(t *testing.T) {
	for _, from := range []State{ConnectionActive, ConnectionProvisioned} {
		next, err := Apply(from, EventReceiveErrorEvent)
		if err != nil {
			t.Fatalf("errorEvent from %q failed: %v", from, err)
		}
		if next != ConnectionFailed {
			t.Fatalf("got %q, want ConnectionFailed", next)
		}
	}
}

func TestIllegalTransitionIsRefused(t *testing.T) {
	_, err := Apply(ConnectionNew, EventReceiveReserveConfirmed)
	if err == nil {
		t.Fatal("expected ErrTransitionNotAllowed")
	}
	if _, ok := err.(*ErrTransitionNotAllowed); !ok {
		t.Fatalf("expected *ErrTransitionNotAllowed, got %T", err)
	}
}

func TestTerminateConfirmedHasTwoDisjointDestinations(t *testing.T) {
	next, err := Apply(ConnectionTerminating, EventReceiveTerminateConfirmed)
	if err != nil || next != ConnectionTerminated {
		t.Fatalf("got (%q, %v), want ConnectionTerminated", next, err)
	}

	next, err = Apply(ConnectionReprovisionTerminating, EventReceiveTerminateConfirmed)
	if err != nil || next != ConnectionReprovisionTerminated {
		t.Fatalf("got (%q, %v), want ConnectionReprovisionTerminated", next, err)
	}
}

func TestMapQuerySummary(t *testing.T) {
	if s, ok := MapQuerySummary("Provisioned", true); !ok || s != ConnectionActive {
		t.Fatalf("got (%q, %v)", s, ok)
	}
	if s, ok := MapQuerySummary("Released", false); !ok || s != ConnectionReserveCommitted {
		t.Fatalf("got (%q, %v)", s, ok)
	}
	if _, ok := MapQuerySummary("Provisioning", false); ok {
		t.Fatal("expected no mapping for unrecognized combination")
	}
}

func TestAllDeclaredStatesAreRecognized(t *testing.T) {
	for _, s := range []State{
		ConnectionNew, ConnectionReserveChecking, ConnectionReserveHeld, ConnectionReserveFailed,
		ConnectionReserveTimeout, ConnectionReserveCommitting, ConnectionReserveCommitted,
		ConnectionProvisioning, ConnectionProvisioned, ConnectionActive, ConnectionReleasing,
		ConnectionReleased, ConnectionFailed, ConnectionTerminating, ConnectionTerminated,
		ConnectionDeleted,
	} {
		if !IsDeclared(s) {
			t.Fatalf("expected %q to be declared", s)
		}
	}
	if IsDeclared(State("bogus")) {
		t.Fatal("unexpected state recognized as declared")
	}
}
