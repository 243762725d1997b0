package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/constants"
)

// Row represents one inventory row for data transfer between layers.
// Alarm is a cached projection of (Fields, Baseline); only the alarm engine writes it.
type Row struct {
	ID            uuid.UUID `json:"id"`
	FileGroup     string    `json:"file_group"`
	SequenceIndex int       `json:"sequence_index"`
	Fields        Fields    `json:"fields"`
	Baseline      *float64  `json:"baseline"`
	Alarm         bool      `json:"alarm"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Confirmed reports whether a baseline has been set.
func (r *Row) Confirmed() bool {
	return r.Baseline != nil
}

// Alarming treats a stored true without a baseline as false.
func (r *Row) Alarming() bool {
	return r.Alarm && r.Baseline != nil
}

func (r *Row) State() constants.AlarmState {
	switch {
	case r.Baseline == nil:
		return constants.AlarmStateUnconfirmed
	case r.Alarm:
		return constants.AlarmStateAlarming
	default:
		return constants.AlarmStateNormal
	}
}

// Clone returns a deep copy so callers can mutate without touching a stored row.
func (r *Row) Clone() *Row {
	if r == nil {
		return nil
	}
	out := *r
	out.Fields = r.Fields.Clone()
	if r.Baseline != nil {
		b := *r.Baseline
		out.Baseline = &b
	}
	return &out
}

// Float64Ptr is a small helper for building baselines.
func Float64Ptr(v float64) *float64 {
	return &v
}
