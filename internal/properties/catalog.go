package properties

import "sort"

// Alert property names. These are part of the broker's schema and must match verbatim.
const (
	SNR           = "lsst_diaSource_snr"
	SSObjectID    = "lsst_diaSource_ssObjectId"
	PSFFluxFlag   = "lsst_diaSource_psfFlux_flag"
	CentroidFlag  = "lsst_diaSource_centroid_flag"
	ShapeFlag     = "lsst_diaSource_shape_flag"
	IsDipole      = "lsst_diaSource_isDipole"
	SaturatedFlag = "lsst_diaSource_pixelFlags_saturated"
	EdgeFlag      = "lsst_diaSource_pixelFlags_edge"
	CosmicRayFlag = "lsst_diaSource_pixelFlags_cr"
	StreakFlag    = "lsst_diaSource_pixelFlags_streak"
)

type Kind string

const (
	Numeric    Kind = "numeric"
	Identifier Kind = "identifier"
	Flag       Kind = "flag"
)

type FieldMetadata struct {
	Name        string
	Kind        Kind
	Description string
	Stage       string // pipeline stage that measures the field
}

type Catalog struct {
	fields map[string]FieldMetadata
	order  []string
}

func NewCatalog() *Catalog {
	c := &Catalog{
		fields: make(map[string]FieldMetadata),
	}
	c.initializeFields()
	return c
}

func (c *Catalog) initializeFields() {
	// Measurement
	c.addField(SNR, Numeric, "Signal-to-noise ratio of the difference-image source", "diaSource measurement")
	c.addField(SSObjectID, Identifier, "Identifier of the associated solar system object, 0 or null when none", "solar system association")

	// Measurement failures
	c.addField(PSFFluxFlag, Flag, "PSF flux measurement failed", "diaSource measurement")
	c.addField(CentroidFlag, Flag, "Centroid measurement failed", "diaSource measurement")
	c.addField(ShapeFlag, Flag, "Shape measurement failed", "diaSource measurement")
	c.addField(IsDipole, Flag, "Source was classified as a dipole", "dipole fitting")

	// Pixel flags
	c.addField(SaturatedFlag, Flag, "Source footprint contains saturated pixels", "pixel flags")
	c.addField(EdgeFlag, Flag, "Source is near an image edge", "pixel flags")
	c.addField(CosmicRayFlag, Flag, "Source footprint contains cosmic-ray pixels", "pixel flags")
	c.addField(StreakFlag, Flag, "Source footprint overlaps a satellite streak", "pixel flags")
}

func (c *Catalog) addField(name string, kind Kind, description, stage string) {
	if _, exists := c.fields[name]; !exists {
		c.order = append(c.order, name)
	}
	c.fields[name] = FieldMetadata{
		Name:        name,
		Kind:        kind,
		Description: description,
		Stage:       stage,
	}
}

// Get returns the metadata for a field
func (c *Catalog) Get(name string) (FieldMetadata, bool) {
	meta, exists := c.fields[name]
	return meta, exists
}

// Names returns the catalog's field names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

func (c *Catalog) ByKind(kind Kind) []string {
	var names []string
	for _, name := range c.order {
		if c.fields[name].Kind == kind {
			names = append(names, name)
		}
	}
	return names
}

func (c *Catalog) Stages() []string {
	seen := make(map[string]bool)
	var stages []string
	for _, meta := range c.fields {
		if !seen[meta.Stage] {
			seen[meta.Stage] = true
			stages = append(stages, meta.Stage)
		}
	}
	sort.Strings(stages)
	return stages
}

// QualityFlags lists the flag fields in the order the filter checks them.
var QualityFlags = []string{
	PSFFluxFlag,
	CentroidFlag,
	ShapeFlag,
	IsDipole,
	SaturatedFlag,
	EdgeFlag,
	CosmicRayFlag,
	StreakFlag,
}

// Required lists every alert property the filter reads.
func Required() []string {
	return append([]string{SNR, SSObjectID}, QualityFlags...)
}
