package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// occupancyEpsilon absorbs float rounding when releasing capacity. A release
// that would drive occupancy below zero by more than this is a logic error in
// the caller and is reported, not clamped.
const occupancyEpsilon = 1e-9

// StorageLocation is a bounded container (shelf, rack, drying room) holding
// stock items. CurrentOccupancy is maintained incrementally by the ledger
// service as a side effect of adjustments, never recomputed by full scan.
type StorageLocation struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Label string    `json:"label" gorm:"type:varchar(100);not null;uniqueIndex"`
	Unit  Unit      `json:"unit" gorm:"type:varchar(10);not null;default:'COUNT'"`

	Capacity         float64 `json:"capacity" gorm:"type:decimal(12,3);not null;default:0"`
	CurrentOccupancy float64 `json:"currentOccupancy" gorm:"type:decimal(12,3);not null;default:0"`

	Metadata *JSON `json:"metadata,omitempty" gorm:"type:jsonb"`

	// Optimistic concurrency guard, incremented on every save
	Version int `json:"version" gorm:"not null;default:0"`

	// Audit fields
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy *string         `json:"createdBy,omitempty"`
}

func (StorageLocation) TableName() string {
	return "storage_locations"
}

// Reserve claims amount of capacity. It either reserves the full amount or
// fails with ErrCapacityExceeded; there is no partial reservation.
func (l *StorageLocation) Reserve(amount float64) (float64, error) {
	if amount < 0 {
		return l.CurrentOccupancy, fmt.Errorf("%w: reserve amount %.3f is negative", ErrInvalidArgument, amount)
	}
	if l.CurrentOccupancy+amount > l.Capacity {
		return l.CurrentOccupancy, fmt.Errorf("%w: location %q has %.3f of %.3f occupied, cannot reserve %.3f",
			ErrCapacityExceeded, l.Label, l.CurrentOccupancy, l.Capacity, amount)
	}
	l.CurrentOccupancy += amount
	return l.CurrentOccupancy, nil
}

// Release returns amount of capacity. Releasing more than is occupied
// (beyond a rounding epsilon) signals a bookkeeping bug upstream and fails
// with ErrInvalidArgument instead of silently clamping.
func (l *StorageLocation) Release(amount float64) (float64, error) {
	if amount < 0 {
		return l.CurrentOccupancy, fmt.Errorf("%w: release amount %.3f is negative", ErrInvalidArgument, amount)
	}
	remaining := l.CurrentOccupancy - amount
	if remaining < -occupancyEpsilon {
		return l.CurrentOccupancy, fmt.Errorf("%w: releasing %.3f from location %q would drive occupancy below zero (currently %.3f)",
			ErrInvalidArgument, amount, l.Label, l.CurrentOccupancy)
	}
	if remaining < 0 {
		remaining = 0
	}
	l.CurrentOccupancy = remaining
	return l.CurrentOccupancy, nil
}

// UtilizationPercent returns occupancy as a percentage of capacity.
// A zero-capacity location reports 0.
func (l *StorageLocation) UtilizationPercent() float64 {
	if l.Capacity == 0 {
		return 0
	}
	return l.CurrentOccupancy / l.Capacity * 100
}
