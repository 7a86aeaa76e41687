package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageLocation_Reserve(t *testing.T) {
	loc := &StorageLocation{Label: "Shelf A", Capacity: 100, CurrentOccupancy: 80}

	occupancy, err := loc.Reserve(15)
	assert.NoError(t, err)
	assert.Equal(t, 95.0, occupancy)

	// 5 remaining, asking for 10 must fail without partial reservation
	occupancy, err = loc.Reserve(10)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 95.0, occupancy)
	assert.Equal(t, 95.0, loc.CurrentOccupancy)

	occupancy, err = loc.Reserve(5)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, occupancy)
}

func TestStorageLocation_Reserve_NegativeAmount(t *testing.T) {
	loc := &StorageLocation{Label: "Shelf A", Capacity: 100}

	_, err := loc.Reserve(-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 0.0, loc.CurrentOccupancy)
}

func TestStorageLocation_Release(t *testing.T) {
	loc := &StorageLocation{Label: "Rack B", Capacity: 50, CurrentOccupancy: 30}

	occupancy, err := loc.Release(12.5)
	assert.NoError(t, err)
	assert.Equal(t, 17.5, occupancy)

	// Releasing more than is occupied reports the bookkeeping error
	_, err = loc.Release(20)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 17.5, loc.CurrentOccupancy)
}

func TestStorageLocation_Release_AbsorbsFloatRounding(t *testing.T) {
	loc := &StorageLocation{Label: "Rack B", Capacity: 1, CurrentOccupancy: 0.3}

	// 0.1+0.1+0.1 > 0.3 in float64 by a hair; the epsilon clamps it to zero
	var err error
	for i := 0; i < 3; i++ {
		_, err = loc.Release(0.1)
		assert.NoError(t, err)
	}
	assert.Equal(t, 0.0, loc.CurrentOccupancy)
}

func TestStorageLocation_UtilizationPercent(t *testing.T) {
	loc := &StorageLocation{Capacity: 200, CurrentOccupancy: 50}
	assert.Equal(t, 25.0, loc.UtilizationPercent())

	empty := &StorageLocation{Capacity: 0, CurrentOccupancy: 0}
	assert.Equal(t, 0.0, empty.UtilizationPercent())
}

func TestInventoryTransaction_SignedDelta(t *testing.T) {
	addition := &InventoryTransaction{Quantity: 12.5, IsAddition: true}
	assert.Equal(t, 12.5, addition.SignedDelta())

	consumption := &InventoryTransaction{Quantity: 12.5, IsAddition: false}
	assert.Equal(t, -12.5, consumption.SignedDelta())
}
