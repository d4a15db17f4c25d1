package nsi

import (
	"fmt"

	"github.com/caffix/stringset"
	"github.com/google/uuid"

	"github.com/workfloworchestrator/nsi-aura/internal/fsm"
)

// Action is the closed set of recognized inbound SOAPAction values. The
// switch below lists every action; the compiler does not check that it
// stays exhaustive as actions are added.
type Action string

const (
	ActionReserveConfirmed       Action = "reserveConfirmed"
	ActionReserveFailed          Action = "reserveFailed"
	ActionReserveTimeout         Action = "reserveTimeout"
	ActionReserveAbortConfirmed  Action = "reserveAbortConfirmed"
	ActionReserveCommitConfirmed Action = "reserveCommitConfirmed"
	ActionProvisionConfirmed     Action = "provisionConfirmed"
	ActionReleaseConfirmed       Action = "releaseConfirmed"
	ActionTerminateConfirmed     Action = "terminateConfirmed"
	ActionDataPlaneStateChange   Action = "dataPlaneStateChange"
	ActionErrorEvent             Action = "errorEvent"
)

// byConnectionID is the set of actions correlated by connectionId instead
// of correlationId. Built with caffix/stringset since the task is exactly
// a static set-membership test.
var byConnectionID = stringset.New("errorEvent", "dataPlaneStateChange", "reserveTimeout")

// ErrUnrecognizedAction is a protocol violation: an unknown SOAPAction.
type ErrUnrecognizedAction struct{ Action string }

func (e *ErrUnrecognizedAction) Error() string {
	return fmt.Sprintf("nsi: unrecognized SOAPAction %q", e.Action)
}

// Callback is a parsed, routed inbound message: which fsm event it maps
// to, and the correlation key (connectionId or correlationId) a resolver
// uses to find the reservation row it targets.
type Callback struct {
	Action          Action
	ByConnectionID  bool
	ConnectionID    uuid.UUID
	CorrelationID   uuid.UUID
	ErrorText       string
	ProvisionState  string
	DataPlaneActive bool
}

// FSMEvent maps a recognized Action to the fsm.Event it drives.
func (c Callback) FSMEvent() (fsm.Event, error) {
	switch c.Action {
	case ActionReserveConfirmed:
		return fsm.EventReceiveReserveConfirmed, nil
	case ActionReserveFailed:
		return fsm.EventReceiveReserveFailed, nil
	case ActionReserveTimeout:
		return fsm.EventReceiveReserveTimeout, nil
	case ActionReserveAbortConfirmed:
		return fsm.EventReceiveReserveAbortConfirm, nil
	case ActionReserveCommitConfirmed:
		return fsm.EventReceiveReserveCommitOK, nil
	case ActionProvisionConfirmed:
		return fsm.EventReceiveProvisionConfirmed, nil
	case ActionReleaseConfirmed:
		return fsm.EventReceiveReleaseConfirmed, nil
	case ActionTerminateConfirmed:
		return fsm.EventReceiveTerminateConfirmed, nil
	case ActionDataPlaneStateChange:
		if c.DataPlaneActive {
			return fsm.EventReceiveDataPlaneUp, nil
		}
		return fsm.EventReceiveDataPlaneDown, nil
	case ActionErrorEvent:
		return fsm.EventReceiveErrorEvent, nil
	default:
		return "", &ErrUnrecognizedAction{Action: string(c.Action)}
	}
}

// ParseCallback routes an inbound callback by its SOAPAction header and
// flattens its body to extract the correlation key and any fields the
// corresponding fsm event needs (error text, data-plane status).
func ParseCallback(soapAction string, body []byte) (Callback, error) {
	action := Action(soapAction)
	switch action {
	case ActionReserveConfirmed, ActionReserveFailed, ActionReserveTimeout, ActionReserveAbortConfirmed,
		ActionReserveCommitConfirmed, ActionProvisionConfirmed, ActionReleaseConfirmed,
		ActionTerminateConfirmed, ActionDataPlaneStateChange, ActionErrorEvent:
		// recognized, fall through
	default:
		return Callback{}, &ErrUnrecognizedAction{Action: soapAction}
	}

	flat, err := Flatten(body)
	if err != nil {
		return Callback{}, fmt.Errorf("nsi: malformed callback body: %w", err)
	}

	cb := Callback{
		Action:         action,
		ByConnectionID: byConnectionID.Has(string(action)),
	}

	if id, ok := findKey(flat, "connectionId").(uuid.UUID); ok {
		cb.ConnectionID = id
	}
	if id, ok := findKey(flat, "correlationId").(uuid.UUID); ok {
		cb.CorrelationID = id
	}
	if cb.ByConnectionID && cb.ConnectionID == uuid.Nil {
		return Callback{}, fmt.Errorf("nsi: callback %q missing connectionId", soapAction)
	}
	if !cb.ByConnectionID && cb.CorrelationID == uuid.Nil {
		return Callback{}, fmt.Errorf("nsi: callback %q missing correlationId", soapAction)
	}

	if action == ActionErrorEvent {
		cb.ErrorText = asString(findKey(flat, "text"))
	}
	if action == ActionDataPlaneStateChange {
		if m, ok := findKey(flat, "dataPlaneStatus").(map[string]any); ok {
			cb.DataPlaneActive = asString(m["active"]) == "true"
		}
	}

	return cb, nil
}

// RenderAcknowledgement builds the generic <acknowledgement> reply every
// callback gets, echoing the correlationId and our providerNSA identity.
func RenderAcknowledgement(correlationID uuid.UUID, providerNSAID string) ([]byte, error) {
	return render("acknowledgement", map[string]any{
		"CorrelationID":  correlationID,
		"RequesterNSAID": "",
		"ProviderNSAID":  providerNSAID,
	})
}
