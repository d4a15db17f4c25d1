package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/workfloworchestrator/nsi-aura/internal/models"
	"github.com/workfloworchestrator/nsi-aura/internal/reservation"
)

// createReservationRequest is the wire shape of a POST /api/reservations body.
type createReservationRequest struct {
	Description string     `json:"description"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	SourceStpID uint       `json:"sourceStpId"`
	SourceVlan  int        `json:"sourceVlan"`
	DestStpID   uint       `json:"destStpId"`
	DestVlan    int        `json:"destVlan"`
	Bandwidth   int        `json:"bandwidth"`
}

func newReservationsHandler(deps Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createReservation(w, r, deps)
		case http.MethodGet:
			listReservations(w, r, deps)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func createReservation(w http.ResponseWriter, r *http.Request, deps Deps) {
	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := deps.Reservations.Create(r.Context(), reservation.CreateRequest{
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SourceStpID: req.SourceStpID,
		SourceVlan:  req.SourceVlan,
		DestStpID:   req.DestStpID,
		DestVlan:    req.DestVlan,
		Bandwidth:   req.Bandwidth,
	})
	if err != nil {
		var unavailable *reservation.ErrVLANUnavailable
		if errors.As(err, &unavailable) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func listReservations(w http.ResponseWriter, r *http.Request, deps Deps) {
	var rows []models.Reservation
	if err := deps.Store.DB.Order("id").Find(&rows).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
