// Package fsm implements the reservation connection state machine.
//
// The machine is a pure function over (State, Event): it owns no side
// effects and no long-lived instance. Every command re-hydrates a
// transient machine from the reservation's persisted state column,
// applies one event, and writes the result back in a transaction; the
// caller enqueues whatever job the transition authorizes after that
// transaction commits.
package fsm

import "fmt"

// State is one declared state of the reservation connection lifecycle.
type State string

// Event is a named trigger, either a protocol callback or a user command,
// that the machine attempts to apply to a State.
type Event string

// Declared states, exhaustive.
const (
	ConnectionNew                    State = "ConnectionNew"
	ConnectionReserveChecking        State = "ConnectionReserveChecking"
	ConnectionReserveHeld            State = "ConnectionReserveHeld"
	ConnectionReserveFailed          State = "ConnectionReserveFailed"
	ConnectionReserveTimeout         State = "ConnectionReserveTimeout"
	ConnectionReserveCommitting      State = "ConnectionReserveCommitting"
	ConnectionReserveCommitted       State = "ConnectionReserveCommitted"
	ConnectionProvisioning           State = "ConnectionProvisioning"
	ConnectionProvisioned            State = "ConnectionProvisioned"
	ConnectionActive                State = "ConnectionActive"
	ConnectionReleasing              State = "ConnectionReleasing"
	ConnectionReleased               State = "ConnectionReleased"
	ConnectionFailed                 State = "ConnectionFailed"
	ConnectionTerminating            State = "ConnectionTerminating"
	ConnectionTerminated             State = "ConnectionTerminated"
	ConnectionDeleted                State = "ConnectionDeleted"
	ConnectionReserveAborting        State = "ConnectionReserveAborting"
	ConnectionReserveAborted         State = "ConnectionReserveAborted"
	ConnectionReprovisionTerminating State = "ConnectionReprovisionTerminating"
	ConnectionReprovisionTerminated  State = "ConnectionReprovisionTerminated"
)

// Declared events, exhaustive.
const (
	EventSendReserve                Event = "nsi_send_reserve"
	EventReceiveReserveConfirmed    Event = "nsi_receive_reserve_confirmed"
	EventReceiveReserveFailed       Event = "nsi_receive_reserve_failed"
	EventConnectionError            Event = "connection_error"
	EventReceiveReserveTimeout      Event = "nsi_receive_reserve_timeout"
	EventSendReserveCommit          Event = "nsi_send_reserve_commit"
	EventReceiveReserveCommitOK     Event = "nsi_receive_reserve_commit_confirmed"
	EventSendProvision              Event = "nsi_send_provision"
	EventReceiveProvisionConfirmed  Event = "nsi_receive_provision_confirmed"
	EventReceiveDataPlaneUp         Event = "nsi_receive_data_plane_up"
	EventSendRelease                Event = "nsi_send_release"
	EventReceiveReleaseConfirmed    Event = "nsi_receive_release_confirmed"
	EventReceiveDataPlaneDown       Event = "nsi_receive_data_plane_down"
	EventReceiveErrorEvent          Event = "nsi_receive_error_event"
	EventSendTerminate              Event = "nsi_send_terminate"
	EventReceiveTerminateConfirmed  Event = "nsi_receive_terminate_confirmed"
	EventGUIDeleteConnection        Event = "gui_delete_connection"
	EventGUIReserveRetry            Event = "gui_reserve_retry"
	EventReceiveReserveAbortConfirm Event = "nsi_receive_reserve_abort_confirmed"
	EventGUIReprovision             Event = "gui_connection_reprovision"
)

// ErrTransitionNotAllowed is returned when an event is applied outside its
// legal source states: the transition is refused and no outbound side
// effect is produced by the caller.
type ErrTransitionNotAllowed struct {
	Event Event
	From  State
}

func (e *ErrTransitionNotAllowed) Error() string {
	return fmt.Sprintf("fsm: event %q is not allowed from state %q", e.Event, e.From)
}

// edge lists every source state an event may legally fire from, and the
// single destination state it drives to.
type edge struct {
	from []State
	to   State
}

// transitions is the complete, exhaustive legal-transition table,
// including the retry/reprovision side-paths (ConnectionReserveAborting/
// Aborted and ReprovisionTerminating/Terminated) alongside the main
// reserve/commit/provision/release/terminate lifecycle.
var transitions = map[Event]edge{
	EventSendReserve: {
		from: []State{ConnectionNew, ConnectionReserveFailed, ConnectionTerminated, ConnectionReserveAborted, ConnectionReprovisionTerminated},
		to:   ConnectionReserveChecking,
	},
	EventReceiveReserveConfirmed:   {from: []State{ConnectionReserveChecking}, to: ConnectionReserveHeld},
	EventReceiveReserveFailed:      {from: []State{ConnectionReserveChecking}, to: ConnectionReserveFailed},
	EventConnectionError:           {from: []State{ConnectionReserveChecking}, to: ConnectionReserveFailed},
	EventReceiveReserveTimeout:     {from: []State{ConnectionReserveHeld}, to: ConnectionReserveTimeout},
	EventSendReserveCommit:         {from: []State{ConnectionReserveHeld}, to: ConnectionReserveCommitting},
	EventReceiveReserveCommitOK:    {from: []State{ConnectionReserveCommitting}, to: ConnectionReserveCommitted},
	EventSendProvision:             {from: []State{ConnectionReserveCommitted}, to: ConnectionProvisioning},
	EventReceiveProvisionConfirmed: {from: []State{ConnectionProvisioning}, to: ConnectionProvisioned},
	EventReceiveDataPlaneUp:        {from: []State{ConnectionProvisioned}, to: ConnectionActive},
	EventSendRelease:               {from: []State{ConnectionActive}, to: ConnectionReleasing},
	EventReceiveReleaseConfirmed:   {from: []State{ConnectionReleasing}, to: ConnectionReleased},
	EventReceiveDataPlaneDown:      {from: []State{ConnectionReleased}, to: ConnectionReserveCommitted},
	EventReceiveErrorEvent:         {from: []State{ConnectionActive, ConnectionProvisioned}, to: ConnectionFailed},
	EventSendTerminate: {
		from: []State{ConnectionReserveTimeout, ConnectionReserveCommitted, ConnectionFailed, ConnectionReserveFailed},
		to:   ConnectionTerminating,
	},
	EventReceiveTerminateConfirmed: {from: []State{ConnectionTerminating}, to: ConnectionTerminated},
	EventGUIDeleteConnection:       {from: []State{ConnectionTerminated}, to: ConnectionDeleted},

	// Retry/reprovision side-paths, supplemented from original_source/aura/fsm.py.
	EventGUIReserveRetry:            {from: []State{ConnectionReserveFailed, ConnectionReserveTimeout}, to: ConnectionReserveAborting},
	EventReceiveReserveAbortConfirm: {from: []State{ConnectionReserveAborting}, to: ConnectionReserveAborted},
	EventGUIReprovision:             {from: []State{ConnectionFailed}, to: ConnectionReprovisionTerminating},
}

// reprovisionTerminateConfirmed is a second legal source set for EventReceiveTerminateConfirmed,
// modeled separately because the destination state differs from the
// primary Terminating->Terminated edge above.
var reprovisionTerminateConfirmed = edge{from: []State{ConnectionReprovisionTerminating}, to: ConnectionReprovisionTerminated}

// ActiveStates is every state that reserves STP/VLAN resources: everything
// except New, ReserveFailed, ReserveTimeout, Terminated, Deleted, and
// ReprovisionTerminated.
var ActiveStates = map[State]bool{
	ConnectionReserveChecking:        true,
	ConnectionReserveHeld:            true,
	ConnectionReserveCommitting:      true,
	ConnectionReserveCommitted:       true,
	ConnectionProvisioning:           true,
	ConnectionProvisioned:            true,
	ConnectionActive:                 true,
	ConnectionReleasing:              true,
	ConnectionReleased:               true,
	ConnectionFailed:                 true,
	ConnectionTerminating:            true,
	ConnectionReserveAborting:        true,
	ConnectionReserveAborted:         true,
	ConnectionReprovisionTerminating: true,
}

// Apply evaluates event against the current state and returns the next
// state, or ErrTransitionNotAllowed if the event is illegal from current.
func Apply(current State, event Event) (State, error) {
	e, ok := transitions[event]
	if ok && containsState(e.from, current) {
		return e.to, nil
	}

	// EventReceiveTerminateConfirmed has two disjoint source sets with
	// different destinations; check the reprovision variant explicitly.
	if event == EventReceiveTerminateConfirmed && containsState(reprovisionTerminateConfirmed.from, current) {
		return reprovisionTerminateConfirmed.to, nil
	}

	return "", &ErrTransitionNotAllowed{Event: event, From: current}
}

func containsState(states []State, s State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

// MapQuerySummary maps a provider querySummarySync snapshot to the local
// state it corresponds to:
// provisionState=Provisioned & dataPlaneStatus.active=true -> Active;
// provisionState=Released & dataPlaneStatus.active=false -> ReserveCommitted.
func MapQuerySummary(provisionState string, dataPlaneActive bool) (State, bool) {
	switch {
	case provisionState == "Provisioned" && dataPlaneActive:
		return ConnectionActive, true
	case provisionState == "Released" && !dataPlaneActive:
		return ConnectionReserveCommitted, true
	default:
		return "", false
	}
}

// IsDeclared reports whether s is one of the machine's declared states,
// the invariant every persisted reservation.state column must satisfy.
func IsDeclared(s State) bool {
	switch s {
	case ConnectionNew, ConnectionReserveChecking, ConnectionReserveHeld, ConnectionReserveFailed,
		ConnectionReserveTimeout, ConnectionReserveCommitting, ConnectionReserveCommitted,
		ConnectionProvisioning, ConnectionProvisioned, ConnectionActive, ConnectionReleasing,
		ConnectionReleased, ConnectionFailed, ConnectionTerminating, ConnectionTerminated,
		ConnectionDeleted, ConnectionReserveAborting, ConnectionReserveAborted,
		ConnectionReprovisionTerminating, ConnectionReprovisionTerminated:
		return true
	}
	return false
}
