/*
tolerance.go - Band normalization and the violation contract

PURPOSE:
  Validates a captured value against a checkpoint's tolerance band and
  enforces the one rule the engine ever rejects an operation for: an
  out-of-range value cannot be committed without a non-empty reason.

BOUND NORMALIZATION:
  Checkpoint bounds are stored as strings or numbers depending on who
  authored them. Bound accepts both at the JSON boundary, so the evaluator
  only ever sees decimals. Invalid or missing bounds fall back to the
  documented default band for the equipment kind.

COMMIT CONTRACT:
  Propose() is the only path to a committable Reading. It returns
  ErrJustificationRequired for an out-of-range value with no reason, and it
  constructs the violation Alert when an out-of-range value is committed
  with one. The host persists a Reading only after a successful Propose.

SEE ALSO:
  - snapshot.go: band resolution with defaults
  - errors.go: ErrJustificationRequired
*/
package compliance

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BOUND - String-or-number JSON temperature bound
// =============================================================================

// Bound is one edge of a tolerance band. Valid is false when the stored
// value was absent or unparseable; resolution then substitutes a default.
type Bound struct {
	Value decimal.Decimal
	Valid bool
}

// NewBound builds a valid bound from a float. Seed/test convenience.
func NewBound(v float64) Bound {
	return Bound{Value: decimal.NewFromFloat(v), Valid: true}
}

// UnmarshalJSON accepts 7, "7", "7.5" and null.
func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = Bound{}
		return nil
	}
	s := string(data)
	if s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			*b = Bound{}
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		// Malformed master data degrades to the default band, it never
		// breaks historical evaluation.
		*b = Bound{}
		return nil
	}
	*b = Bound{Value: d, Valid: true}
	return nil
}

// MarshalJSON emits the bound as a JSON number.
func (b Bound) MarshalJSON() ([]byte, error) {
	if !b.Valid {
		return []byte("null"), nil
	}
	return []byte(b.Value.String()), nil
}

// =============================================================================
// BAND - Normalized tolerance band
// =============================================================================

// Band is a checkpoint with numeric bounds. The evaluator only ever sees
// Bands; normalization happens once, at the snapshot boundary.
type Band struct {
	Name string
	Min  decimal.Decimal
	Max  decimal.Decimal
}

// Default bands applied when a catalog has no usable checkpoints.
var (
	DefaultFridgeBand = Band{Name: "Temperatur", Min: decimal.NewFromInt(2), Max: decimal.NewFromInt(7)}
	DefaultMenuBand   = Band{Name: "Kern-Temperatur", Min: decimal.NewFromInt(72), Max: decimal.NewFromInt(95)}
)

// normalizeBands converts checkpoints to bands, substituting the fallback's
// bounds for individually invalid edges.
func normalizeBands(cps []Checkpoint, fallback Band) []Band {
	bands := make([]Band, 0, len(cps))
	for _, cp := range cps {
		b := Band{Name: cp.Name, Min: fallback.Min, Max: fallback.Max}
		if cp.MinTemp.Valid {
			b.Min = cp.MinTemp.Value
		}
		if cp.MaxTemp.Valid {
			b.Max = cp.MaxTemp.Value
		}
		bands = append(bands, b)
	}
	return bands
}

// InRange reports min <= v <= max.
func (b Band) InRange(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(b.Min) && v.LessThanOrEqual(b.Max)
}

// =============================================================================
// READING PROPOSAL - The only path to a committable Reading
// =============================================================================

// ReadingProposal is the final value a user locks in, together with its
// provenance. Draft edits before locking are caller-owned state; the
// engine only sees the committed value.
type ReadingProposal struct {
	ID             string
	TargetID       string
	TargetKind     TargetKind
	CheckpointName string
	Value          decimal.Decimal
	Timestamp      string
	UserID         string
	FacilityID     string
	// Reason justifies an out-of-range value. Ignored when in range.
	Reason string
}

// ToleranceEvaluator validates proposals against bands and produces the
// violation alerts the delivery collaborator consumes.
type ToleranceEvaluator struct{}

// Evaluation is the outcome of checking a value against its band.
type Evaluation struct {
	InRange bool
	Band    Band
}

// Evaluate classifies a value against a band.
func (te ToleranceEvaluator) Evaluate(value decimal.Decimal, band Band) Evaluation {
	return Evaluation{InRange: band.InRange(value), Band: band}
}

// Propose turns a proposal into a locked, committable Reading.
//
// In range: the Reading carries no reason (even if one was typed) and no
// alert is produced. Out of range without a non-empty reason:
// ErrJustificationRequired and nothing committable. Out of range with a
// reason: the Reading carries it and a violation Alert is constructed for
// the alerting collaborator. Names on the alert resolve defensively.
func (te ToleranceEvaluator) Propose(p ReadingProposal, snap *Snapshot) (Reading, *Alert, error) {
	band := snap.BandFor(p.TargetKind, p.TargetID, p.FacilityID, p.CheckpointName)

	reading := Reading{
		ID:             p.ID,
		TargetID:       p.TargetID,
		TargetType:     p.TargetKind,
		CheckpointName: p.CheckpointName,
		Value:          p.Value,
		Timestamp:      p.Timestamp,
		UserID:         p.UserID,
		FacilityID:     p.FacilityID,
		IsLocked:       true,
	}

	if band.InRange(p.Value) {
		return reading, nil, nil
	}

	if !hasText(p.Reason) {
		return Reading{}, nil, &JustificationError{
			TargetID:       p.TargetID,
			CheckpointName: p.CheckpointName,
			Value:          p.Value,
			Band:           band,
		}
	}

	reading.Reason = p.Reason
	alert := &Alert{
		ID:             p.ID,
		FacilityID:     p.FacilityID,
		FacilityName:   FacilityName(snap, p.FacilityID),
		TargetName:     TargetName(snap, p.TargetKind, p.TargetID),
		CheckpointName: p.CheckpointName,
		Value:          p.Value,
		Min:            band.Min,
		Max:            band.Max,
		Timestamp:      p.Timestamp,
		UserID:         p.UserID,
		UserName:       UserName(snap, p.UserID),
		Resolved:       false,
	}
	return reading, alert, nil
}
