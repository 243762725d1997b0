// Package projection renders arbitrary rows into the fixed seven-column display schema.
package projection

import (
	"fmt"
	"time"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/columns"
	"github.com/stockwatch/stockwatch/internal/entity"
)

// Projected is the display shape of a row.
type Projected struct {
	RowID            string               `json:"rowId"`
	SequenceNumber   int                  `json:"sequenceNumber"`
	ItemName         string               `json:"itemName"`
	Specification    string               `json:"specification"`
	Unit             string               `json:"unit"`
	CurrentQuantity  float64              `json:"currentQuantity"`
	BaselineQuantity float64              `json:"baselineQuantity"`
	Status           constants.RowStatus  `json:"status"`
	State            constants.AlarmState `json:"state"`
	ExpiresOn        *time.Time           `json:"expiresOn,omitempty"`
}

type Projector struct {
	extractor    *columns.Extractor
	now          func() time.Time
	expiryWindow int
}

type Option func(*Projector)

// WithClock pins "now" for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Projector) {
		if now != nil {
			p.now = now
		}
	}
}

// WithExpiryWindow sets how many days ahead counts as expiring soon.
func WithExpiryWindow(days int) Option {
	return func(p *Projector) {
		if days > 0 {
			p.expiryWindow = days
		}
	}
}

func NewProjector(extractor *columns.Extractor, opts ...Option) *Projector {
	if extractor == nil {
		extractor = columns.NewExtractor(nil)
	}
	p := &Projector{
		extractor:    extractor,
		now:          time.Now,
		expiryWindow: constants.DefaultExpiryWindowDays,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Project has no side effects; it never touches row.Alarm.
func (p *Projector) Project(row *entity.Row, sequenceIndex int) Projected {
	seq := sequenceIndex + 1
	out := Projected{
		RowID:          row.ID.String(),
		SequenceNumber: seq,
		ItemName:       fmt.Sprintf("Item %d", seq),
		Specification:  "-",
		Unit:           "-",
		State:          row.State(),
	}
	if s, ok := p.extractor.Text(row.Fields, constants.RoleItemName); ok {
		out.ItemName = s
	}
	if s, ok := p.extractor.Text(row.Fields, constants.RoleSpecification); ok {
		out.Specification = s
	}
	if s, ok := p.extractor.Text(row.Fields, constants.RoleUnit); ok {
		out.Unit = s
	}
	out.CurrentQuantity = p.extractor.QuantityOrZero(row.Fields)
	if row.Baseline != nil {
		out.BaselineQuantity = *row.Baseline
	}

	var days *int
	if raw := p.extractor.Extract(row.Fields, constants.RoleExpiry); raw != nil {
		if d, ok := ParseDate(raw); ok {
			out.ExpiresOn = &d
			n := DaysUntil(p.now(), d)
			days = &n
		}
	}
	out.Status = p.status(row, out.CurrentQuantity, days)
	return out
}

// ProjectAll projects rows by slice position, which is also the display order.
func (p *Projector) ProjectAll(rows []*entity.Row) []Projected {
	out := make([]Projected, len(rows))
	for i, r := range rows {
		out[i] = p.Project(r, i)
	}
	return out
}

func (p *Projector) status(row *entity.Row, current float64, daysUntilExpiry *int) constants.RowStatus {
	if daysUntilExpiry != nil {
		if *daysUntilExpiry <= 0 {
			return constants.RowStatusExpired
		}
		if *daysUntilExpiry <= p.expiryWindow {
			return constants.RowStatusExpiringSoon
		}
	}
	if IsShort(row.Baseline, current) {
		return constants.RowStatusShortage
	}
	return constants.RowStatusNormal
}

// IsShort is the shared comparison rule: a positive baseline strictly above the current quantity.
func IsShort(baseline *float64, current float64) bool {
	return baseline != nil && *baseline > 0 && current < *baseline
}
