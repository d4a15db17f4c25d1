package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/workfloworchestrator/nsi-aura/internal/db"
	"github.com/workfloworchestrator/nsi-aura/internal/dispatcher"
	"github.com/workfloworchestrator/nsi-aura/internal/models"
	"github.com/workfloworchestrator/nsi-aura/internal/reservation"
	"github.com/workfloworchestrator/nsi-aura/internal/reslog"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDeps(t *testing.T) (Deps, uint, uint) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ura-http-test.db")
	conn, err := db.Open("sqlite://"+path, false)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	store := db.New(conn)

	var a, z *models.STP
	err = store.Transaction(func(tx *gorm.DB) error {
		var txErr error
		a, txErr = db.UpsertSTP(tx, &models.STP{StpID: "urn:ogf:network:example.net:2023:port-a", VlanRange: "100-200"})
		if txErr != nil {
			return txErr
		}
		z, txErr = db.UpsertSTP(tx, &models.STP{StpID: "urn:ogf:network:example.net:2023:port-z", VlanRange: "100-200"})
		return txErr
	})
	if err != nil {
		t.Fatalf("seed stps: %v", err)
	}

	disp := dispatcher.NewDispatcher(store, nil, silentLogger(), 1)
	svc := reservation.New(store, disp, silentLogger())
	hub := reslog.NewHub()

	return Deps{
		Reservations:  svc,
		Store:         store,
		Hub:           hub,
		ProviderNSAID: "urn:ogf:network:example.net:2023:nsa:aura",
		Log:           silentLogger(),
	}, a.ID, z.ID
}

func newTestMux(deps Deps) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/nsi/callback/", newCallbackHandler(deps))
	mux.Handle("/api/reservations", newReservationsHandler(deps))
	mux.Handle("/api/reservations/", newReservationActionHandler(deps))
	mux.HandleFunc("/api/healthcheck/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func TestHealthz(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	mux := newTestMux(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/healthcheck/", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCreateAndListReservations(t *testing.T) {
	deps, srcID, dstID := newTestDeps(t)
	mux := newTestMux(deps)

	body, _ := json.Marshal(createReservationRequest{
		SourceStpID: srcID,
		SourceVlan:  100,
		DestStpID:   dstID,
		DestVlan:    100,
		Bandwidth:   1000,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}

	var created models.Reservation
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created reservation: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected a nonzero reservation id")
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
	listRec := httptest.NewRecorder()
	mux.ServeHTTP(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", listRec.Code)
	}
	var rows []models.Reservation
	if err := json.Unmarshal(listRec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode reservation list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
}

func TestCreateConflictingVLANReturns422(t *testing.T) {
	deps, srcID, dstID := newTestDeps(t)
	mux := newTestMux(deps)

	body, _ := json.Marshal(createReservationRequest{SourceStpID: srcID, SourceVlan: 150, DestStpID: dstID, DestVlan: 150, Bandwidth: 1000})

	first := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader(body))
	firstRec := httptest.NewRecorder()
	mux.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusCreated {
		t.Fatalf("first POST status = %d, want 201", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader(body))
	secondRec := httptest.NewRecorder()
	mux.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusUnprocessableEntity {
		t.Errorf("second POST status = %d, want 422", secondRec.Code)
	}
}

func TestActionOnUnknownReservationReturnsConflict(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	mux := newTestMux(deps)

	req := httptest.NewRequest(http.MethodPost, "/api/reservations/999/reserve-commit", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 (unknown reservation id surfaces as a failed lookup)", rec.Code)
	}
}

func TestActionUnknownNameReturns404(t *testing.T) {
	deps, srcID, dstID := newTestDeps(t)
	mux := newTestMux(deps)

	body, _ := json.Marshal(createReservationRequest{SourceStpID: srcID, SourceVlan: 100, DestStpID: dstID, DestVlan: 100, Bandwidth: 1000})
	createReq := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader(body))
	createRec := httptest.NewRecorder()
	mux.ServeHTTP(createRec, createReq)
	var created models.Reservation
	_ = json.Unmarshal(createRec.Body.Bytes(), &created)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/reservations/%d/bogus-action", created.ID), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCallbackReturnsAcknowledgement(t *testing.T) {
	deps, srcID, dstID := newTestDeps(t)
	mux := newTestMux(deps)

	body, _ := json.Marshal(createReservationRequest{SourceStpID: srcID, SourceVlan: 100, DestStpID: dstID, DestVlan: 100, Bandwidth: 1000})
	createReq := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader(body))
	createRec := httptest.NewRecorder()
	mux.ServeHTTP(createRec, createReq)
	var created models.Reservation
	_ = json.Unmarshal(createRec.Body.Bytes(), &created)

	soapBody := []byte(`<?xml version="1.0"?><soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body><reserveConfirmed><correlationId>` + created.CorrelationID.String() + `</correlationId></reserveConfirmed></soapenv:Body></soapenv:Envelope>`)

	req := httptest.NewRequest(http.MethodPost, "/api/nsi/callback/", bytes.NewReader(soapBody))
	req.Header.Set("SOAPAction", "reserveConfirmed")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		t.Error("expected a non-empty SOAP acknowledgement body")
	}
}
