package httpapi

import (
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/workfloworchestrator/nsi-aura/internal/nsi"
)

// newCallbackHandler handles the NSI aggregator's async POSTs: parse,
// route to the reservation it targets, apply the corresponding fsm
// event, and reply with a SOAP acknowledgement regardless of outcome —
// an aggregator retries failed/timed-out deliveries against ack absence,
// not against our having successfully processed the callback, so even a
// protocol violation (unrecognized SOAPAction, missing correlation key,
// malformed XML) still gets 200 + acknowledgement, only logged at warn.
func newCallbackHandler(deps Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			deps.Log.Warn("failed to read nsi callback body", "error", err)
			writeAcknowledgement(w, deps, uuid.Nil)
			return
		}

		cb, err := nsi.ParseCallback(r.Header.Get("SOAPAction"), body)
		if err != nil {
			deps.Log.Warn("malformed nsi callback", "error", err)
			writeAcknowledgement(w, deps, uuid.Nil)
			return
		}

		if err := deps.Reservations.HandleCallback(r.Context(), cb); err != nil {
			deps.Log.Warn("nsi callback rejected", "action", cb.Action, "error", err)
		}

		writeAcknowledgement(w, deps, cb.CorrelationID)
	})
}

func writeAcknowledgement(w http.ResponseWriter, deps Deps, correlationID uuid.UUID) {
	ack, err := nsi.RenderAcknowledgement(correlationID, deps.ProviderNSAID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ack)
}
