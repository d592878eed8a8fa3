package unspayload

import (
	"encoding/json"
	"fmt"
)

// Quality is the OPC-style quality flag attached to every canonical reading.
// Only the three declared values are valid; anything else is rejected when a
// Payload is constructed or decoded.
type Quality string

const (
	QualityGood      Quality = "Good"
	QualityBad       Quality = "Bad"
	QualityUncertain Quality = "Uncertain"
)

// Valid reports whether q is one of the three declared quality values.
func (q Quality) Valid() bool {
	switch q {
	case QualityGood, QualityBad, QualityUncertain:
		return true
	}
	return false
}

func (q Quality) String() string {
	return string(q)
}

// ParseQuality converts a literal quality name into a Quality.
func ParseQuality(s string) (Quality, error) {
	q := Quality(s)
	if !q.Valid() {
		return "", &ValidationError{Field: "quality", Reason: fmt.Sprintf("%q is not one of Good, Bad, Uncertain", s)}
	}
	return q, nil
}

// UnmarshalJSON rejects unknown quality names at the decode boundary.
func (q *Quality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &ValidationError{Field: "quality", Reason: "must be a string"}
	}
	parsed, err := ParseQuality(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
