// Package models holds the GORM entity definitions for the five tables
// the core persists: stp, sdp, reservation, reservation_sdp_link, and log.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/workfloworchestrator/nsi-aura/internal/fsm"
)

// STP is a directional port endpoint on a domain, derived from NML topology.
type STP struct {
	ID             uint `gorm:"primarykey"`
	StpID          string `gorm:"uniqueIndex;not null"`
	InboundPort    string
	OutboundPort   string
	InboundAlias   string
	OutboundAlias  string
	VlanRange      string
	Description    string
	Active         bool `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (STP) TableName() string { return "stp" }

// SDP is a bidirectional inter-domain link realized by two STPs that
// mutually alias each other. (StpAID, StpZID) is unordered for identity
// purposes: a reconcile pass must not create both (A,Z) and (Z,A).
type SDP struct {
	ID          uint `gorm:"primarykey"`
	StpAID      uint `gorm:"not null;uniqueIndex:idx_sdp_pair"`
	StpZID      uint `gorm:"not null;uniqueIndex:idx_sdp_pair"`
	StpA        STP  `gorm:"foreignKey:StpAID"`
	StpZ        STP  `gorm:"foreignKey:StpZID"`
	VlanRange   string
	Description string
	Active      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SDP) TableName() string { return "sdp" }

// ReservationSDPLink is the row shape of the reservation_sdp_link table,
// with a Position column for a reservation's SDP order. It is not
// registered with GORM as the join table of Reservation.SDPs, and no
// query orders by Position, so loaded SDPs come back in no defined order.
type ReservationSDPLink struct {
	ReservationID uint `gorm:"primarykey"`
	SDPID         uint `gorm:"primarykey"`
	Position      int  `gorm:"not null"`
}

func (ReservationSDPLink) TableName() string { return "reservation_sdp_link" }

// Reservation is one cross-domain connection request, owning its complete
// lifecycle through the fsm state machine.
type Reservation struct {
	ID                  uint   `gorm:"primarykey"`
	ConnectionID         *uuid.UUID `gorm:"index"`
	GlobalReservationID uuid.UUID  `gorm:"not null"`
	CorrelationID       uuid.UUID  `gorm:"index"`
	Description         string
	StartTime           *time.Time
	EndTime             *time.Time
	SourceStpID         uint `gorm:"not null"`
	DestStpID           uint `gorm:"not null"`
	SourceStp           STP  `gorm:"foreignKey:SourceStpID"`
	DestStp             STP  `gorm:"foreignKey:DestStpID"`
	SourceVlan          int  `gorm:"not null"`
	DestVlan            int  `gorm:"not null"`
	Bandwidth           int  `gorm:"not null"`
	State               string `gorm:"not null;index"`
	SDPs                []SDP  `gorm:"many2many:reservation_sdp_link;"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (Reservation) TableName() string { return "reservation" }

// FSMState is a typed accessor over the persisted string state column.
func (r *Reservation) FSMState() fsm.State { return fsm.State(r.State) }

// LogEntry is an append-only, per-reservation human-readable event record,
// streamed to the GUI over SSE.
type LogEntry struct {
	ID            uint `gorm:"primarykey"`
	ReservationID uint `gorm:"not null;index"`
	Timestamp     time.Time
	Message       string
	Module        string
	Function      string
	Line          int
}

func (LogEntry) TableName() string { return "log" }
