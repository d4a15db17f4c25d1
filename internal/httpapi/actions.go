package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/workfloworchestrator/nsi-aura/internal/reslog"
)

// newReservationActionHandler serves /api/reservations/{id}[/{action}],
// dispatching lifecycle commands and the per-reservation SSE log stream.
// Routes are dynamic on reservation id, so the path is parsed by hand
// rather than registered per-id: pattern-based method/wildcard routing
// arrived in Go 1.22's ServeMux, after this module's go.mod toolchain.
func newReservationActionHandler(deps Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/reservations/")
		parts := strings.SplitN(rest, "/", 2)

		id, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
			return
		}
		reservationID := uint(id)

		if len(parts) == 2 && parts[1] == "log/sse" {
			streamLog(w, r, deps, reservationID)
			return
		}

		if r.Method != http.MethodPost || len(parts) != 2 {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var actionErr error
		switch parts[1] {
		case "reserve-commit":
			actionErr = deps.Reservations.ReserveCommit(r.Context(), reservationID)
		case "provision":
			actionErr = deps.Reservations.Provision(r.Context(), reservationID)
		case "release":
			actionErr = deps.Reservations.Release(r.Context(), reservationID)
		case "terminate":
			actionErr = deps.Reservations.Terminate(r.Context(), reservationID)
		case "retry":
			actionErr = deps.Reservations.Retry(r.Context(), reservationID)
		case "delete":
			actionErr = deps.Reservations.Delete(r.Context(), reservationID)
		default:
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", parts[1]))
			return
		}

		if actionErr != nil {
			writeError(w, http.StatusConflict, actionErr)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}

// streamLog serves a reservation's live log as Server-Sent Events.
func streamLog(w http.ResponseWriter, r *http.Request, deps Deps, reservationID uint) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	ch, unsubscribe := deps.Hub.Subscribe(reservationID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", formatLogMessage(msg))
			flusher.Flush()
		}
	}
}

func formatLogMessage(msg reslog.Message) string {
	return fmt.Sprintf("[%s] %s", msg.Timestamp, msg.Text)
}
