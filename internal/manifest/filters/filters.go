package filters

import (
	"github.com/scimma/lsst-quality-filter/internal/manifest"
	"github.com/scimma/lsst-quality-filter/internal/properties"
)

const (
	ScimmaQualityName = "lsst_transient_quality_filter_scimma"
	ScimmaQualityTag  = "lsst_scimma_quality_transient"
)

// ScimmaQuality returns the declaration of the SCiMMA LSST transient quality filter.
// It selects loci whose latest alert has SNR > 10, no quality flags set and no
// solar system object association, for catalog cross-matching downstream.
func ScimmaQuality() manifest.Manifest {
	return manifest.Manifest{
		Name:    ScimmaQualityName,
		Version: 1,
		Description: "Selects high-quality LSST transient candidates for cross matching " +
			"against Gaia and other catalogs in SCiMMA infrastructure",
		NotificationChannel:     "#filter-scimma-lsst-quality",
		TriggeringSurvey:        "lsst",
		RequiredLocusProperties: []string{},
		RequiredAlertProperties: properties.Required(),
		RequiredTags:            []string{},
		RequiresFiles:           []string{},
		OutputTag:               ScimmaQualityTag,
		OutputLocusProperties:   []manifest.PropertySpec{},
		OutputLocusTags: []manifest.TagSpec{
			{
				Name: ScimmaQualityTag,
				Description: "LSST alert passes quality cuts for transient candidate " +
					"crossmatching by SCiMMA: SNR > 10, no quality flags, " +
					"not a known solar system object.",
			},
		},
	}
}
