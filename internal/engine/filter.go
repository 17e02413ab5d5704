package engine

import (
	"fmt"

	"github.com/scimma/lsst-quality-filter/internal/manifest"
	"github.com/scimma/lsst-quality-filter/internal/properties"
	"github.com/scimma/lsst-quality-filter/internal/types"
)

// MinSNR is the exclusive lower bound on lsst_diaSource_snr.
const MinSNR = 10.0

type Check string

const (
	CheckNone              Check = ""
	CheckSNR               Check = "snr"
	CheckSolarSystemObject Check = "solar_system_object"
	CheckPSFFlux           Check = "psf_flux_flag"
	CheckCentroid          Check = "centroid_flag"
	CheckShape             Check = "shape_flag"
	CheckDipole            Check = "is_dipole"
	CheckSaturated         Check = "pixel_saturated"
	CheckEdge              Check = "pixel_edge"
	CheckCosmicRay         Check = "pixel_cosmic_ray"
	CheckStreak            Check = "pixel_streak"
)

// Checks lists every check in evaluation order.
var Checks = []Check{
	CheckSNR,
	CheckSolarSystemObject,
	CheckPSFFlux,
	CheckCentroid,
	CheckShape,
	CheckDipole,
	CheckSaturated,
	CheckEdge,
	CheckCosmicRay,
	CheckStreak,
}

// Verdict is the outcome of evaluating one alert. Check names the first check
// that rejected the alert and is empty when it passed.
type Verdict struct {
	Passed bool   `json:"passed"`
	Check  Check  `json:"check,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func reject(check Check, format string, args ...interface{}) Verdict {
	return Verdict{
		Passed: false,
		Check:  check,
		Reason: fmt.Sprintf(format, args...),
	}
}

// QualityFilter tags loci whose latest alert passes the SCiMMA transient quality
// cuts. It holds no per-locus state and may be shared across goroutines.
type QualityFilter struct {
	manifest manifest.Manifest
}

func NewQualityFilter(m manifest.Manifest) (*QualityFilter, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &QualityFilter{manifest: m}, nil
}

func (f *QualityFilter) Manifest() manifest.Manifest {
	return f.manifest
}

func (f *QualityFilter) OutputTag() string {
	return f.manifest.OutputTag
}

// Evaluate decides whether an alert's properties pass the quality cuts.
// Missing or mistyped properties are returned as errors, never as a rejection.
func (f *QualityFilter) Evaluate(props types.Properties) (Verdict, error) {
	rec, err := properties.Parse(props)
	if err != nil {
		return Verdict{}, err
	}
	return f.evaluateRecord(rec), nil
}

func (f *QualityFilter) evaluateRecord(rec properties.QualityRecord) Verdict {
	// NaN fails this comparison and is rejected
	if !(rec.SNR > MinSNR) {
		return reject(CheckSNR, "%s is %v (must be > %v)", properties.SNR, rec.SNR, MinSNR)
	}

	if rec.SolarSystemObject.Known {
		return reject(CheckSolarSystemObject, "%s is %s (known solar system object)",
			properties.SSObjectID, rec.SolarSystemObject.ID)
	}

	if rec.PSFFluxFlag {
		return reject(CheckPSFFlux, "%s is set", properties.PSFFluxFlag)
	}
	if rec.CentroidFlag {
		return reject(CheckCentroid, "%s is set", properties.CentroidFlag)
	}
	if rec.ShapeFlag {
		return reject(CheckShape, "%s is set", properties.ShapeFlag)
	}
	if rec.IsDipole {
		return reject(CheckDipole, "%s is set", properties.IsDipole)
	}
	if rec.Saturated {
		return reject(CheckSaturated, "%s is set", properties.SaturatedFlag)
	}
	if rec.Edge {
		return reject(CheckEdge, "%s is set", properties.EdgeFlag)
	}
	if rec.CosmicRay {
		return reject(CheckCosmicRay, "%s is set", properties.CosmicRayFlag)
	}
	if rec.Streak {
		return reject(CheckStreak, "%s is set", properties.StreakFlag)
	}

	return Verdict{Passed: true}
}

// Run evaluates the latest alert of the locus and tags the locus with the output
// tag when it passes. A rejected alert leaves the locus untouched.
func (f *QualityFilter) Run(locus *types.Locus) (Verdict, error) {
	alert, err := locus.LatestAlert()
	if err != nil {
		return Verdict{}, fmt.Errorf("locus %s: %w", locus.ID, err)
	}

	verdict, err := f.Evaluate(alert.Properties)
	if err != nil {
		return Verdict{}, fmt.Errorf("locus %s alert %s: %w", locus.ID, alert.ID, err)
	}

	if verdict.Passed {
		locus.Tag(f.manifest.OutputTag)
	}
	return verdict, nil
}
