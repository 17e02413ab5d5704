package manifest

import (
	"errors"
	"fmt"
)

type TagSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PropertySpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Manifest declares what a filter reads and what it may write. The broker uses it
// for scheduling and documentation; the filter itself only reads OutputTag.
type Manifest struct {
	Name                    string         `json:"name"`
	Version                 int            `json:"version"`
	Description             string         `json:"description"`
	NotificationChannel     string         `json:"notification_channel"`
	TriggeringSurvey        string         `json:"triggering_survey"`
	RequiredLocusProperties []string       `json:"required_locus_properties"`
	RequiredAlertProperties []string       `json:"required_alert_properties"`
	RequiredTags            []string       `json:"required_tags"`
	RequiresFiles           []string       `json:"requires_files"`
	OutputTag               string         `json:"output_tag"`
	OutputLocusProperties   []PropertySpec `json:"output_locus_properties"`
	OutputLocusTags         []TagSpec      `json:"output_locus_tags"`
}

var ErrInvalidManifest = errors.New("invalid filter manifest")

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidManifest)
	}
	if m.TriggeringSurvey == "" {
		return fmt.Errorf("%w: triggering survey is required", ErrInvalidManifest)
	}
	if m.OutputTag == "" {
		return fmt.Errorf("%w: output tag is required", ErrInvalidManifest)
	}
	if _, ok := m.OutputTagSpec(); !ok {
		return fmt.Errorf("%w: output tag %q is not declared in output locus tags", ErrInvalidManifest, m.OutputTag)
	}
	return nil
}

// OutputTagSpec returns the declaration of the filter's output tag.
func (m Manifest) OutputTagSpec() (TagSpec, bool) {
	for _, spec := range m.OutputLocusTags {
		if spec.Name == m.OutputTag {
			return spec, true
		}
	}
	return TagSpec{}, false
}
