package types

import (
	"errors"
	"maps"
	"slices"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"
)

// ErrNoAlerts is returned when a locus carries no alerts to evaluate.
var ErrNoAlerts = errors.New("locus has no alerts")

// Properties is the property bag the broker attaches to an alert or locus.
type Properties map[string]interface{}

// Alert is one observation reported for a locus
type Alert struct {
	ID         string     `json:"alert_id"`
	MJD        float64    `json:"mjd"`
	Properties Properties `json:"properties"`
}

// Locus is a single astronomical source tracked across repeated alerts.
// Alerts are ordered oldest first. Tags is the source of truth for tag
// membership; Tag replaces the slice instead of appending so copies of a Locus
// never share tag state.
type Locus struct {
	ID         string     `json:"locus_id"`
	RA         float64    `json:"ra"`
	Dec        float64    `json:"dec"`
	Properties Properties `json:"properties,omitempty"`
	Alerts     []Alert    `json:"alerts"`
	Tags       []string   `json:"tags,omitempty"`

	newTags []string
}

// LatestAlert returns the most recent alert of the locus.
func (l *Locus) LatestAlert() (Alert, error) {
	if len(l.Alerts) == 0 {
		return Alert{}, ErrNoAlerts
	}
	return l.Alerts[len(l.Alerts)-1], nil
}

// SortAlerts orders alerts by MJD, oldest first.
func (l *Locus) SortAlerts() {
	sort.SliceStable(l.Alerts, func(i, j int) bool {
		return l.Alerts[i].MJD < l.Alerts[j].MJD
	})
}

// Tag attaches a tag to the locus. Attaching the same tag again is a no-op.
func (l *Locus) Tag(name string) {
	if l.HasTag(name) {
		return
	}
	l.Tags = sets.List(sets.New[string](l.Tags...).Insert(name))
	l.newTags = sets.List(sets.New[string](l.newTags...).Insert(name))
}

// HasTag reports whether the tag is attached, either before or during this run.
func (l *Locus) HasTag(name string) bool {
	return slices.Contains(l.Tags, name)
}

// NewTags lists the tags attached since the locus was loaded, sorted.
func (l *Locus) NewTags() []string {
	return append([]string{}, l.newTags...)
}

// Snapshot returns a copy of the locus that shares no slices or maps with l.
// The copy keeps Tags but reports no NewTags.
func (l *Locus) Snapshot() Locus {
	alerts := make([]Alert, len(l.Alerts))
	for i, a := range l.Alerts {
		alerts[i] = Alert{ID: a.ID, MJD: a.MJD, Properties: maps.Clone(a.Properties)}
	}
	return Locus{
		ID:         l.ID,
		RA:         l.RA,
		Dec:        l.Dec,
		Properties: maps.Clone(l.Properties),
		Alerts:     alerts,
		Tags:       slices.Clone(l.Tags),
	}
}
