package state

import (
	"errors"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/scimma/lsst-quality-filter/internal/types"
)

var ErrUnknownLocus = errors.New("unknown locus")

type LocusStore interface {
	Record(locus types.Locus) error
	Get(id string) (types.Locus, bool)
	Tag(id, tag string) error
	Tags(id string) []string
	ListByTag(tag string) []string
}

// In-memory implementation for fallback
type MemoryStore struct {
	mu          sync.RWMutex
	loci        map[string]types.Locus
	tagsByLocus map[string]sets.Set[string]
	lociByTag   map[string]sets.Set[string]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		loci:        make(map[string]types.Locus),
		tagsByLocus: make(map[string]sets.Set[string]),
		lociByTag:   make(map[string]sets.Set[string]),
	}
}

// Record stores the latest snapshot of a locus. Tags carried by the snapshot are
// merged with the tags already known for it.
func (s *MemoryStore) Record(locus types.Locus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loci[locus.ID] = locus.Snapshot()
	for _, tag := range locus.Tags {
		s.tagLocked(locus.ID, tag)
	}
	return nil
}

func (s *MemoryStore) Get(id string) (types.Locus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locus, exists := s.loci[id]
	if !exists {
		return types.Locus{}, false
	}
	snap := locus.Snapshot()
	snap.Tags = sets.List(s.tagsByLocus[id])
	return snap, true
}

func (s *MemoryStore) Tag(id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.loci[id]; !exists {
		return ErrUnknownLocus
	}
	s.tagLocked(id, tag)
	return nil
}

func (s *MemoryStore) tagLocked(id, tag string) {
	if s.tagsByLocus[id] == nil {
		s.tagsByLocus[id] = sets.New[string]()
	}
	s.tagsByLocus[id].Insert(tag)

	if s.lociByTag[tag] == nil {
		s.lociByTag[tag] = sets.New[string]()
	}
	s.lociByTag[tag].Insert(id)
}

func (s *MemoryStore) Tags(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sets.List(s.tagsByLocus[id])
}

func (s *MemoryStore) ListByTag(tag string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sets.List(s.lociByTag[tag])
}
