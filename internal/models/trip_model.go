package models

import (
	"encoding/json"
	"fmt"
)

// TripsCollection is the Firestore collection holding the shared trip document.
const TripsCollection = "trips"

// DefaultTripID is the document ID every client reads and writes when none is configured.
const DefaultTripID = "trip_2025_nordic_master"

// Field names one independently subscribable field of the trip document.
type Field string

const (
	FieldMembers  Field = "members"
	FieldSchedule Field = "schedule"
	FieldDriveURL Field = "driveUrl"
)

// KnownFields lists every field the sync layer accepts.
var KnownFields = []Field{FieldMembers, FieldSchedule, FieldDriveURL}

// ParseField converts a raw field name (e.g. from a URL path) into a Field.
func ParseField(name string) (Field, bool) {
	for _, f := range KnownFields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// Valid reports whether f is one of the known trip fields.
func (f Field) Valid() bool {
	_, ok := ParseField(string(f))
	return ok
}

func (f Field) String() string { return string(f) }

// Decode converts a loosely typed field value (as returned by the document store,
// a json.RawMessage, or an already typed value) into out.
func Decode(value interface{}, out interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode field value: %w", err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode field value: %w", err)
	}
	return nil
}
