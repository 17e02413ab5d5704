package properties

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/scimma/lsst-quality-filter/internal/types"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrTypeMismatch = errors.New("field has unexpected type")
)

// FieldError names the property that failed validation.
type FieldError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrMissingField) {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v (got %T %v)", e.Field, e.Err, e.Value, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// QualityRecord is the typed view of the alert properties the quality filter reads.
type QualityRecord struct {
	SNR               float64
	SolarSystemObject SolarSystemObject

	PSFFluxFlag  bool
	CentroidFlag bool
	ShapeFlag    bool
	IsDipole     bool
	Saturated    bool
	Edge         bool
	CosmicRay    bool
	Streak       bool
}

// Parse validates the required properties and converts them into a QualityRecord.
// The first missing or mistyped field is reported as a *FieldError.
func Parse(props types.Properties) (QualityRecord, error) {
	var rec QualityRecord

	raw, err := lookup(props, SNR)
	if err != nil {
		return rec, err
	}
	snr, ok := toNumber(raw)
	if !ok {
		return rec, &FieldError{Field: SNR, Value: raw, Err: ErrTypeMismatch}
	}
	rec.SNR = snr

	raw, err = lookup(props, SSObjectID)
	if err != nil {
		return rec, err
	}
	rec.SolarSystemObject = ParseSolarSystemObject(raw)

	flags := []struct {
		name string
		dst  *bool
	}{
		{PSFFluxFlag, &rec.PSFFluxFlag},
		{CentroidFlag, &rec.CentroidFlag},
		{ShapeFlag, &rec.ShapeFlag},
		{IsDipole, &rec.IsDipole},
		{SaturatedFlag, &rec.Saturated},
		{EdgeFlag, &rec.Edge},
		{CosmicRayFlag, &rec.CosmicRay},
		{StreakFlag, &rec.Streak},
	}
	for _, f := range flags {
		raw, err := lookup(props, f.name)
		if err != nil {
			return rec, err
		}
		set, ok := toFlag(raw)
		if !ok {
			return rec, &FieldError{Field: f.name, Value: raw, Err: ErrTypeMismatch}
		}
		*f.dst = set
	}

	return rec, nil
}

func lookup(props types.Properties, field string) (interface{}, error) {
	value, exists := props[field]
	if !exists {
		return nil, &FieldError{Field: field, Err: ErrMissingField}
	}
	return value, nil
}

func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toFlag treats null as unset and numbers as set when non-zero.
func toFlag(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, true
	case bool:
		return v, true
	default:
		n, ok := toNumber(v)
		if !ok {
			return false, false
		}
		return n != 0, true
	}
}
