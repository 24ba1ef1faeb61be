// Package store is the persistence boundary: named collections of JSON
// documents plus per-session slots. Callers read a whole collection, change
// it in memory and write it back; Update runs that cycle under the
// backend's lock or optimistic check so concurrent writers cannot
// interleave.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"transitadmin/internal/errs"
	"transitadmin/internal/models"
)

type Name string

const (
	Users         Name = "users"
	Vehicles      Name = "vehicles"
	Verifications Name = "verifications"
	VehicleTypes  Name = "vehicleTypes"
)

var (
	// ErrSessionNotFound is returned for missing and expired session slots.
	ErrSessionNotFound = errs.NotFound("session not found")
	// ErrConflict is returned when an optimistic update kept losing races.
	ErrConflict = errs.ErrConflict
	// ErrUnchanged may be returned by an Update callback to skip the write.
	ErrUnchanged = errors.New("store: unchanged")
)

// UpdateFunc receives the current records and returns the replacement set.
// It may run more than once, so it must derive everything from its input.
type UpdateFunc func(records []json.RawMessage) ([]json.RawMessage, error)

type Adapter interface {
	// Read returns every record in the collection, or none if it was never written.
	Read(ctx context.Context, name Name) ([]json.RawMessage, error)
	// Write replaces the whole collection.
	Write(ctx context.Context, name Name, records []json.RawMessage) error
	// Update performs read, fn, write without interleaving with other writers.
	// When fn returns ErrUnchanged nothing is written and Update returns nil.
	Update(ctx context.Context, name Name, fn UpdateFunc) error

	ReadSession(ctx context.Context, id string) (models.Session, error)
	WriteSession(ctx context.Context, session models.Session) error
	ClearSession(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

func decodeRecords(raw []byte) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return []json.RawMessage{}, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

func encodeRecords(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	return json.Marshal(records)
}
