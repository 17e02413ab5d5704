package properties

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// SolarSystemObject is the normalized form of lsst_diaSource_ssObjectId.
// The upstream representation is not fixed across data sources: 0, null and "0"
// all mean no association. Anything else is treated as a known object.
type SolarSystemObject struct {
	Known bool
	ID    string
}

var NoObject = SolarSystemObject{}

func KnownObject(id string) SolarSystemObject {
	return SolarSystemObject{Known: true, ID: id}
}

func (o SolarSystemObject) String() string {
	if !o.Known {
		return "none"
	}
	return o.ID
}

// ParseSolarSystemObject never fails; unexpected types become a known object so
// that the record is disqualified rather than rejected as invalid.
func ParseSolarSystemObject(value interface{}) SolarSystemObject {
	switch v := value.(type) {
	case nil:
		return NoObject
	case bool:
		// false compares equal to 0 in the broker's own check
		if !v {
			return NoObject
		}
		return KnownObject("true")
	case string:
		if v == "0" {
			return NoObject
		}
		return KnownObject(v)
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return NoObject
		}
		return KnownObject(v.String())
	case float32:
		return floatObject(float64(v))
	case float64:
		return floatObject(v)
	case int:
		return intObject(int64(v))
	case int8:
		return intObject(int64(v))
	case int16:
		return intObject(int64(v))
	case int32:
		return intObject(int64(v))
	case int64:
		return intObject(v)
	case uint:
		return uintObject(uint64(v))
	case uint8:
		return uintObject(uint64(v))
	case uint16:
		return uintObject(uint64(v))
	case uint32:
		return uintObject(uint64(v))
	case uint64:
		return uintObject(v)
	default:
		return KnownObject(fmt.Sprintf("%v", v))
	}
}

func intObject(v int64) SolarSystemObject {
	if v == 0 {
		return NoObject
	}
	return KnownObject(strconv.FormatInt(v, 10))
}

func uintObject(v uint64) SolarSystemObject {
	if v == 0 {
		return NoObject
	}
	return KnownObject(strconv.FormatUint(v, 10))
}

func floatObject(v float64) SolarSystemObject {
	if v == 0 {
		return NoObject
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return KnownObject(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return KnownObject(strconv.FormatFloat(v, 'f', -1, 64))
}
