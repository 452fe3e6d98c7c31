package storage

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"genoloc/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	studies     map[string]model.StudyRecord
	pairs       map[string][]model.PairRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.studies = make(map[string]model.StudyRecord)
	s.pairs = make(map[string][]model.PairRecord)
	return nil
}

func (s *MemoryStore) SaveStudy(_ context.Context, study model.StudyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	study.Summaries = slices.Clone(study.Summaries)
	s.studies[study.ID] = study
	return nil
}

func (s *MemoryStore) GetStudy(_ context.Context, id string) (model.StudyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	study, ok := s.studies[id]
	if ok {
		study.Summaries = slices.Clone(study.Summaries)
	}
	return study, ok, nil
}

func (s *MemoryStore) ListStudies(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.studies))
	for id := range s.studies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) SavePairs(_ context.Context, studyID string, records []model.PairRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.pairs[studyID] = slices.Clone(records)
	return nil
}

func (s *MemoryStore) GetPairs(_ context.Context, studyID string) ([]model.PairRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.pairs[studyID]
	return slices.Clone(records), ok, nil
}
