package db

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/workfloworchestrator/nsi-aura/internal/fsm"
	"github.com/workfloworchestrator/nsi-aura/internal/metrics"
	"github.com/workfloworchestrator/nsi-aura/internal/models"
	"github.com/workfloworchestrator/nsi-aura/internal/vlan"
)

// Store wraps the GORM connection with the query/transaction shapes the
// core's components need: STP/SDP reconciliation, reservation lifecycle,
// free-VLAN computation, and log append.
type Store struct {
	DB *gorm.DB
}

func New(conn *gorm.DB) *Store { return &Store{DB: conn} }

// Transaction runs fn inside a single GORM transaction, the unit within
// which a state transition and the persistence it authorizes (a fresh
// correlationId, a connectionId, a log line) must be committed together.
func (s *Store) Transaction(fn func(tx *gorm.DB) error) error {
	return s.DB.Transaction(fn)
}

// --- STP reconciliation -----------------------------------------------

// UpsertSTP inserts a new stpId or updates an existing row's fields
// in-place (and reactivates it if it had been soft-deleted). It never
// changes a row's id, preserving reservation foreign-key integrity.
func UpsertSTP(tx *gorm.DB, fresh *models.STP) (*models.STP, error) {
	var existing models.STP
	err := tx.Where("stp_id = ?", fresh.StpID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fresh.Active = true
		if err := tx.Create(fresh).Error; err != nil {
			return nil, fmt.Errorf("db: create stp %s: %w", fresh.StpID, err)
		}
		return fresh, nil
	case err != nil:
		return nil, fmt.Errorf("db: lookup stp %s: %w", fresh.StpID, err)
	}

	existing.InboundPort = fresh.InboundPort
	existing.OutboundPort = fresh.OutboundPort
	existing.InboundAlias = fresh.InboundAlias
	existing.OutboundAlias = fresh.OutboundAlias
	existing.VlanRange = fresh.VlanRange
	existing.Description = fresh.Description
	existing.Active = true
	if err := tx.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("db: update stp %s: %w", fresh.StpID, err)
	}
	return &existing, nil
}

// DeactivateSTPsNotIn soft-deletes every previously-active STP row whose
// stpId was absent from the current poll's fresh set.
func DeactivateSTPsNotIn(tx *gorm.DB, seenStpIDs []string) error {
	q := tx.Model(&models.STP{}).Where("active = ?", true)
	if len(seenStpIDs) > 0 {
		q = q.Where("stp_id NOT IN ?", seenStpIDs)
	}
	return q.Update("active", false).Error
}

// --- SDP reconciliation -------------------------------------------------

// UpsertSDP inserts or updates the SDP row for the unordered pair
// (stpAID, stpZID), normalizing pair order so a reconcile pass never
// creates both (A,Z) and (Z,A).
func UpsertSDP(tx *gorm.DB, stpAID, stpZID uint, vlanRange, description string) (*models.SDP, error) {
	a, z := stpAID, stpZID
	if a > z {
		a, z = z, a
	}

	var existing models.SDP
	err := tx.Where("stp_a_id = ? AND stp_z_id = ?", a, z).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fresh := &models.SDP{StpAID: a, StpZID: z, VlanRange: vlanRange, Description: description, Active: true}
		if err := tx.Create(fresh).Error; err != nil {
			return nil, fmt.Errorf("db: create sdp (%d,%d): %w", a, z, err)
		}
		return fresh, nil
	case err != nil:
		return nil, fmt.Errorf("db: lookup sdp (%d,%d): %w", a, z, err)
	}

	existing.VlanRange = vlanRange
	existing.Description = description
	existing.Active = true
	if err := tx.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("db: update sdp (%d,%d): %w", a, z, err)
	}
	return &existing, nil
}

// SeenSDPPair is the normalized (stpAID, stpZID) key for a reconciled SDP.
type SeenSDPPair struct {
	StpAID, StpZID uint
}

// DeactivateSDPsNotIn soft-deletes every previously-active SDP row whose
// normalized (stpAID, stpZID) pair is absent from the fresh set. The
// predicate filters on stp_a_id == ? AND stp_z_id == ? independently,
// rather than matching both columns against the same side of the pair.
func DeactivateSDPsNotIn(tx *gorm.DB, seen []SeenSDPPair) error {
	var rows []models.SDP
	if err := tx.Where("active = ?", true).Find(&rows).Error; err != nil {
		return fmt.Errorf("db: list active sdps: %w", err)
	}

	seenSet := make(map[SeenSDPPair]bool, len(seen))
	for _, p := range seen {
		seenSet[p] = true
	}

	for _, row := range rows {
		if seenSet[SeenSDPPair{row.StpAID, row.StpZID}] {
			continue
		}
		if err := tx.Model(&models.SDP{}).Where("stp_a_id = ? AND stp_z_id = ?", row.StpAID, row.StpZID).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("db: deactivate sdp (%d,%d): %w", row.StpAID, row.StpZID, err)
		}
	}
	return nil
}

// --- Free VLAN computation ----------------------------------------------

// FreeVLANs computes stp.vlanRange minus every sourceVlan/destVlan in use
// by a reservation that references this STP and is in an fsm.ActiveStates
// state.
func FreeVLANs(tx *gorm.DB, stpID uint) (vlan.Ranges, error) {
	var stp models.STP
	if err := tx.First(&stp, stpID).Error; err != nil {
		return vlan.Ranges{}, fmt.Errorf("db: load stp %d: %w", stpID, err)
	}
	total, err := vlan.Parse(stp.VlanRange)
	if err != nil {
		return vlan.Ranges{}, fmt.Errorf("db: stp %d has malformed vlan_range %q: %w", stpID, stp.VlanRange, err)
	}

	var reservations []models.Reservation
	if err := tx.Where("source_stp_id = ? OR dest_stp_id = ?", stpID, stpID).Find(&reservations).Error; err != nil {
		return vlan.Ranges{}, fmt.Errorf("db: list reservations for stp %d: %w", stpID, err)
	}

	used := vlan.Ranges{}
	for _, r := range reservations {
		if !fsm.ActiveStates[fsm.State(r.State)] {
			continue
		}
		if r.SourceStpID == stpID {
			v, _ := vlan.Parse(fmt.Sprintf("%d", r.SourceVlan))
			used = used.Union(v)
		}
		if r.DestStpID == stpID {
			v, _ := vlan.Parse(fmt.Sprintf("%d", r.DestVlan))
			used = used.Union(v)
		}
	}

	return total.Difference(used), nil
}

// --- Reservation lifecycle ----------------------------------------------

// CreateReservation persists a new reservation row in ConnectionNew,
// after the caller has already validated VLAN availability.
func CreateReservation(tx *gorm.DB, r *models.Reservation) error {
	r.State = string(fsm.ConnectionNew)
	r.GlobalReservationID = uuid.New()
	if err := tx.Create(r).Error; err != nil {
		return fmt.Errorf("db: create reservation: %w", err)
	}
	return nil
}

// ApplyTransition loads the reservation, evaluates the fsm event against
// its current state, and — if legal — persists the new state and a fresh
// correlationId in one write, returning the updated row. This is the sole
// place a reservation's state column changes, keeping the invariant that
// every applied (event, from, to) triple is in the fsm transition table.
func ApplyTransition(tx *gorm.DB, reservationID uint, event fsm.Event) (*models.Reservation, error) {
	var r models.Reservation
	if err := tx.Clauses().First(&r, reservationID).Error; err != nil {
		return nil, fmt.Errorf("db: load reservation %d: %w", reservationID, err)
	}

	next, err := fsm.Apply(fsm.State(r.State), event)
	if err != nil {
		var refused *fsm.ErrTransitionNotAllowed
		if errors.As(err, &refused) {
			metrics.FSMTransitionRefused.WithLabelValues(string(event), string(r.State)).Inc()
		}
		return nil, err
	}

	r.State = string(next)
	r.CorrelationID = uuid.New()
	if err := tx.Save(&r).Error; err != nil {
		return nil, fmt.Errorf("db: persist transition for reservation %d: %w", reservationID, err)
	}
	metrics.FSMTransitions.WithLabelValues(string(event)).Inc()
	return &r, nil
}

// FindReservationByConnectionID looks up the reservation a provider
// assigned connectionID to, used to route connectionId-keyed callbacks
// (errorEvent, dataPlaneStateChange, reserveTimeout).
func FindReservationByConnectionID(tx *gorm.DB, connectionID uuid.UUID) (*models.Reservation, error) {
	var r models.Reservation
	if err := tx.Where("connection_id = ?", connectionID).First(&r).Error; err != nil {
		return nil, fmt.Errorf("db: find reservation by connectionId %s: %w", connectionID, err)
	}
	return &r, nil
}

// FindReservationByCorrelationID looks up the reservation that minted
// correlationID on its most recent outbound send, used to route every
// other callback.
func FindReservationByCorrelationID(tx *gorm.DB, correlationID uuid.UUID) (*models.Reservation, error) {
	var r models.Reservation
	if err := tx.Where("correlation_id = ?", correlationID).First(&r).Error; err != nil {
		return nil, fmt.Errorf("db: find reservation by correlationId %s: %w", correlationID, err)
	}
	return &r, nil
}

// AppendLog writes one LogEntry row for a reservation.
func AppendLog(tx *gorm.DB, entry *models.LogEntry) error {
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("db: append log entry: %w", err)
	}
	return nil
}
