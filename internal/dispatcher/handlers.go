package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/workfloworchestrator/nsi-aura/internal/db"
	"github.com/workfloworchestrator/nsi-aura/internal/fsm"
	"github.com/workfloworchestrator/nsi-aura/internal/models"
	"github.com/workfloworchestrator/nsi-aura/internal/nsi"
)

// sendReserve loads the reservation and its two STPs, issues the NSI
// reserve request, and persists the provider-assigned connectionId.
// Modeled on the reference implementation's nsi_send_reserve_job, which
// performs the same load-render-post-persist sequence.
func sendReserve(ctx context.Context, store *db.Store, client *nsi.Client, log *slog.Logger, reservationID uint) error {
	var r models.Reservation
	if err := store.DB.First(&r, reservationID).Error; err != nil {
		return fmt.Errorf("dispatcher: load reservation %d: %w", reservationID, err)
	}

	var sourceSTP, destSTP models.STP
	if err := store.DB.First(&sourceSTP, r.SourceStpID).Error; err != nil {
		return fmt.Errorf("dispatcher: load source stp for reservation %d: %w", reservationID, err)
	}
	if err := store.DB.First(&destSTP, r.DestStpID).Error; err != nil {
		return fmt.Errorf("dispatcher: load dest stp for reservation %d: %w", reservationID, err)
	}

	reply, err := client.Reserve(ctx, nsi.ReserveRequest{
		Description:         r.Description,
		GlobalReservationID: r.GlobalReservationID,
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		SourceStpID:         sourceSTP.StpID,
		SourceVlan:          r.SourceVlan,
		DestStpID:           destSTP.StpID,
		DestVlan:            r.DestVlan,
		Bandwidth:           r.Bandwidth,
		CorrelationID:       r.CorrelationID,
	})
	if err != nil {
		log.Error("nsi reserve failed", "reservation_id", reservationID, "error", err)
		failErr := store.Transaction(func(tx *gorm.DB) error {
			if _, err := db.ApplyTransition(tx, reservationID, fsm.EventConnectionError); err != nil {
				return err
			}
			return db.AppendLog(tx, &models.LogEntry{
				ReservationID: reservationID,
				Timestamp:     time.Now().UTC(),
				Message:       fmt.Sprintf("reserve failed: %v", err),
			})
		})
		if failErr != nil {
			log.Error("failed to record connection_error transition", "reservation_id", reservationID, "error", failErr)
		}
		return err
	}

	err = store.Transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.Reservation{}).Where("id = ?", reservationID).
			Update("connection_id", reply.ConnectionID).Error
	})
	if err != nil {
		return fmt.Errorf("dispatcher: persist connectionId for reservation %d: %w", reservationID, err)
	}

	log.Info("nsi reserve sent", "reservation_id", reservationID, "connection_id", reply.ConnectionID)
	return nil
}

// sendSimple covers reserveCommit, provision, release, and terminate:
// each needs only the reservation's already-assigned connectionId and
// its current correlationId.
func sendSimple(ctx context.Context, store *db.Store, client *nsi.Client, log *slog.Logger, kind JobKind, reservationID uint) error {
	var r models.Reservation
	if err := store.DB.First(&r, reservationID).Error; err != nil {
		return fmt.Errorf("dispatcher: load reservation %d: %w", reservationID, err)
	}
	if r.ConnectionID == nil {
		return fmt.Errorf("dispatcher: reservation %d has no connectionId yet", reservationID)
	}

	var err error
	switch kind {
	case JobSendReserveCommit:
		err = client.ReserveCommit(ctx, *r.ConnectionID, r.CorrelationID)
	case JobSendProvision:
		err = client.Provision(ctx, *r.ConnectionID, r.CorrelationID)
	case JobSendRelease:
		err = client.Release(ctx, *r.ConnectionID, r.CorrelationID)
	case JobSendTerminate:
		err = client.Terminate(ctx, *r.ConnectionID, r.CorrelationID)
	default:
		return fmt.Errorf("dispatcher: unrecognized job kind %q", kind)
	}
	if err != nil {
		log.Error("nsi request failed", "kind", kind, "reservation_id", reservationID, "error", err)
		return err
	}

	log.Info("nsi request sent", "kind", kind, "reservation_id", reservationID)
	return nil
}
