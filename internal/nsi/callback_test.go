package nsi

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/workfloworchestrator/nsi-aura/internal/fsm"
)

func reserveConfirmedBody(correlationID, connectionID uuid.UUID) []byte {
	return []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"
		xmlns:head="http://schemas.ogf.org/nsi/2013/12/framework/headers"
		xmlns:types="http://schemas.ogf.org/nsi/2013/12/connection/types">
		<soap:Header><head:nsiHeader><head:correlationId>urn:uuid:` + correlationID.String() + `</head:correlationId></head:nsiHeader></soap:Header>
		<soap:Body><types:reserveConfirmed><types:connectionId>urn:uuid:` + connectionID.String() + `</types:connectionId></types:reserveConfirmed></soap:Body>
		</soap:Envelope>`)
}

func TestParseCallbackByCorrelationID(t *testing.T) {
	correlationID := uuid.New()
	connectionID := uuid.New()

	cb, err := ParseCallback(string(ActionReserveConfirmed), reserveConfirmedBody(correlationID, connectionID))
	if err != nil {
		t.Fatalf("ParseCallback: %v", err)
	}
	if cb.ByConnectionID {
		t.Fatal("reserveConfirmed should correlate by correlationId, not connectionId")
	}
	if cb.CorrelationID != correlationID {
		t.Errorf("CorrelationID = %s, want %s", cb.CorrelationID, correlationID)
	}

	event, err := cb.FSMEvent()
	if err != nil {
		t.Fatalf("FSMEvent: %v", err)
	}
	if event != fsm.EventReceiveReserveConfirmed {
		t.Errorf("event = %s, want %s", event, fsm.EventReceiveReserveConfirmed)
	}
}

func TestParseCallbackByConnectionIDRequiresConnectionID(t *testing.T) {
	body := []byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"
		xmlns:types="http://schemas.ogf.org/nsi/2013/12/connection/types">
		<soap:Body><types:errorEvent><types:text>boom</types:text></types:errorEvent></soap:Body>
		</soap:Envelope>`)

	if _, err := ParseCallback(string(ActionErrorEvent), body); err == nil {
		t.Fatal("expected error: errorEvent without connectionId must be rejected")
	}
}

func TestParseCallbackUnrecognizedAction(t *testing.T) {
	_, err := ParseCallback("somethingElse", []byte(`<a/>`))
	if err == nil {
		t.Fatal("expected ErrUnrecognizedAction")
	}
	var unrecognized *ErrUnrecognizedAction
	if !errors.As(err, &unrecognized) {
		t.Errorf("error %v is not an ErrUnrecognizedAction", err)
	}
}

func TestFSMEventDataPlaneStateChange(t *testing.T) {
	up := Callback{Action: ActionDataPlaneStateChange, DataPlaneActive: true}
	event, err := up.FSMEvent()
	if err != nil || event != fsm.EventReceiveDataPlaneUp {
		t.Errorf("active=true: event=%s err=%v, want %s", event, err, fsm.EventReceiveDataPlaneUp)
	}

	down := Callback{Action: ActionDataPlaneStateChange, DataPlaneActive: false}
	event, err = down.FSMEvent()
	if err != nil || event != fsm.EventReceiveDataPlaneDown {
		t.Errorf("active=false: event=%s err=%v, want %s", event, err, fsm.EventReceiveDataPlaneDown)
	}
}

func TestRenderAcknowledgementEchoesCorrelationID(t *testing.T) {
	correlationID := uuid.New()
	body, err := RenderAcknowledgement(correlationID, "urn:ogf:network:example.net:2023:nsa:ura")
	if err != nil {
		t.Fatalf("RenderAcknowledgement: %v", err)
	}
	if !strings.Contains(string(body), correlationID.String()) {
		t.Errorf("rendered acknowledgement missing correlationId %s", correlationID)
	}
}
