// Package reservation implements the reservation command surface: VLAN
// availability checks and fsm transitions committed in one transaction,
// with the corresponding dispatcher job enqueued only after that
// transaction commits.
package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/workfloworchestrator/nsi-aura/internal/db"
	"github.com/workfloworchestrator/nsi-aura/internal/dispatcher"
	"github.com/workfloworchestrator/nsi-aura/internal/fsm"
	"github.com/workfloworchestrator/nsi-aura/internal/metrics"
	"github.com/workfloworchestrator/nsi-aura/internal/models"
	"github.com/workfloworchestrator/nsi-aura/internal/nsi"
	"github.com/workfloworchestrator/nsi-aura/internal/vlan"
)

// ErrVLANUnavailable means the requested source or dest VLAN is not free
// on its STP; callers map this to an HTTP 422.
type ErrVLANUnavailable struct {
	StpID uint
	VLAN  int
}

func (e *ErrVLANUnavailable) Error() string {
	return fmt.Sprintf("reservation: vlan %d is not free on stp %d", e.VLAN, e.StpID)
}

// Service is the reservation command API the http layer and CLI drive.
type Service struct {
	store *db.Store
	disp  *dispatcher.Dispatcher
	log   *slog.Logger
}

func New(store *db.Store, disp *dispatcher.Dispatcher, log *slog.Logger) *Service {
	return &Service{store: store, disp: disp, log: log}
}

// CreateRequest carries everything a new reservation needs.
type CreateRequest struct {
	Description string
	StartTime   *time.Time
	EndTime     *time.Time
	SourceStpID uint
	SourceVlan  int
	DestStpID   uint
	DestVlan    int
	Bandwidth   int
}

// Create validates the requested VLANs are free, persists a new
// reservation in ConnectionNew, transitions it to ConnectionReserveChecking,
// and enqueues the outbound reserve job — all in one transaction plus a
// post-commit enqueue, so the job is only ever submitted for a committed
// reservation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Reservation, error) {
	if err := vlan.ValidateReservationVLAN(req.SourceVlan); err != nil {
		return nil, err
	}
	if err := vlan.ValidateReservationVLAN(req.DestVlan); err != nil {
		return nil, err
	}

	r := &models.Reservation{
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SourceStpID: req.SourceStpID,
		SourceVlan:  req.SourceVlan,
		DestStpID:   req.DestStpID,
		DestVlan:    req.DestVlan,
		Bandwidth:   req.Bandwidth,
	}

	err := s.store.Transaction(func(tx *gorm.DB) error {
		free, err := db.FreeVLANs(tx, req.SourceStpID)
		if err != nil {
			return err
		}
		if !free.Contains(req.SourceVlan) {
			return &ErrVLANUnavailable{StpID: req.SourceStpID, VLAN: req.SourceVlan}
		}

		free, err = db.FreeVLANs(tx, req.DestStpID)
		if err != nil {
			return err
		}
		if !free.Contains(req.DestVlan) {
			return &ErrVLANUnavailable{StpID: req.DestStpID, VLAN: req.DestVlan}
		}

		if err := db.CreateReservation(tx, r); err != nil {
			return err
		}
		updated, err := db.ApplyTransition(tx, r.ID, fsm.EventSendReserve)
		if err != nil {
			return err
		}
		r = updated
		return db.AppendLog(tx, &models.LogEntry{ReservationID: r.ID, Timestamp: time.Now().UTC(), Message: "reservation created, sending reserve"})
	})
	if err != nil {
		return nil, err
	}

	s.disp.Enqueue(dispatcher.Job{Kind: dispatcher.JobSendReserve, ReservationID: r.ID})
	metrics.ReservationsCreated.Inc()
	s.log.Info("reservation created", "reservation_id", r.ID)
	return r, nil
}

// transition applies event, logs msg, and on success enqueues job (if
// non-empty) after the transaction commits.
func (s *Service) transition(ctx context.Context, reservationID uint, event fsm.Event, msg string, job dispatcher.JobKind) error {
	err := s.store.Transaction(func(tx *gorm.DB) error {
		if _, err := db.ApplyTransition(tx, reservationID, event); err != nil {
			return err
		}
		return db.AppendLog(tx, &models.LogEntry{ReservationID: reservationID, Timestamp: time.Now().UTC(), Message: msg})
	})
	if err != nil {
		return err
	}
	if job != "" {
		s.disp.Enqueue(dispatcher.Job{Kind: job, ReservationID: reservationID})
	}
	return nil
}

// ReserveCommit commits a held reservation.
func (s *Service) ReserveCommit(ctx context.Context, reservationID uint) error {
	return s.transition(ctx, reservationID, fsm.EventSendReserveCommit, "sending reserve commit", dispatcher.JobSendReserveCommit)
}

// Provision requests data-plane activation of a committed reservation.
func (s *Service) Provision(ctx context.Context, reservationID uint) error {
	return s.transition(ctx, reservationID, fsm.EventSendProvision, "sending provision", dispatcher.JobSendProvision)
}

// Release tears down the data plane of an active reservation, keeping
// its reserved resources.
func (s *Service) Release(ctx context.Context, reservationID uint) error {
	return s.transition(ctx, reservationID, fsm.EventSendRelease, "sending release", dispatcher.JobSendRelease)
}

// Terminate ends the reservation entirely.
func (s *Service) Terminate(ctx context.Context, reservationID uint) error {
	return s.transition(ctx, reservationID, fsm.EventSendTerminate, "sending terminate", dispatcher.JobSendTerminate)
}

// Delete removes a terminated reservation from the GUI's active list.
// Purely local: no outbound NSI call corresponds to this event.
func (s *Service) Delete(ctx context.Context, reservationID uint) error {
	return s.transition(ctx, reservationID, fsm.EventGUIDeleteConnection, "deleted", "")
}

// Retry moves a failed or timed-out reservation onto the abort side-path
// (ConnectionReserveAborting). It enqueues no job and sends no NSI
// message; no fresh reserve is sent by this call.
func (s *Service) Retry(ctx context.Context, reservationID uint) error {
	return s.transition(ctx, reservationID, fsm.EventGUIReserveRetry, "retrying reservation", "")
}

// followUpJob names the dispatcher job a callback auto-dispatches once its
// own transition commits: reserveConfirmed immediately commits a held
// reservation, and reserveCommitConfirmed immediately requests
// provisioning, so neither requires an explicit GUI action in between.
func followUpJob(action nsi.Action) dispatcher.JobKind {
	switch action {
	case nsi.ActionReserveConfirmed:
		return dispatcher.JobSendReserveCommit
	case nsi.ActionReserveCommitConfirmed:
		return dispatcher.JobSendProvision
	default:
		return ""
	}
}

// HandleCallback routes one inbound NSI callback to the reservation it
// targets and applies the fsm event it maps to. Most callbacks only ever
// change state; reserveConfirmed and reserveCommitConfirmed additionally
// auto-dispatch their mandatory follow-up command (reserveCommit,
// provision) once the transition they drove has committed, so a
// reservation never stalls in ReserveHeld or ReserveCommitted waiting on
// a GUI action that isn't coming.
func (s *Service) HandleCallback(ctx context.Context, cb nsi.Callback) error {
	event, err := cb.FSMEvent()
	if err != nil {
		return err
	}

	var reservationID uint
	err = s.store.Transaction(func(tx *gorm.DB) error {
		var r *models.Reservation
		var err error
		if cb.ByConnectionID {
			r, err = db.FindReservationByConnectionID(tx, cb.ConnectionID)
		} else {
			r, err = db.FindReservationByCorrelationID(tx, cb.CorrelationID)
		}
		if err != nil {
			return err
		}
		reservationID = r.ID

		if _, err := db.ApplyTransition(tx, r.ID, event); err != nil {
			return err
		}

		msg := fmt.Sprintf("received %s", cb.Action)
		if cb.Action == nsi.ActionErrorEvent && cb.ErrorText != "" {
			msg = fmt.Sprintf("received errorEvent: %s", cb.ErrorText)
		}
		return db.AppendLog(tx, &models.LogEntry{ReservationID: r.ID, Timestamp: time.Now().UTC(), Message: msg})
	})
	if err != nil {
		return err
	}

	if job := followUpJob(cb.Action); job != "" {
		s.disp.Enqueue(dispatcher.Job{Kind: job, ReservationID: reservationID})
	}
	return nil
}
