package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UUIDArray maps a Postgres uuid[] column. Selected option ids are stored
// this way on cart items and objectives. It is never NULL: an empty or nil
// array is written as '{}'.
type UUIDArray []uuid.UUID

func (a *UUIDArray) Scan(src any) error {
	var ids []uuid.UUID
	if src != nil {
		if err := (pq.GenericArray{A: &ids}).Scan(src); err != nil {
			return fmt.Errorf("uuid array: %w", err)
		}
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	*a = ids
	return nil
}

func (a UUIDArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	return pq.GenericArray{A: []uuid.UUID(a)}.Value()
}

func (a UUIDArray) Contains(id uuid.UUID) bool {
	return slices.Contains(a, id)
}
