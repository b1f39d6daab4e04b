package apiv1

import (
	"sync"

	"prospect-video-generator/internal/domain/model"
)

const defaultCSVCapacity = 128

// csvStore keeps parsed uploads so /generate can refer to them by csvId.
// The oldest entry is dropped once capacity is reached.
type csvStore struct {
	mu    sync.Mutex
	cap   int
	byID  map[string]*model.CSVData
	order []string
}

func newCSVStore(capacity int) *csvStore {
	if capacity <= 0 {
		capacity = defaultCSVCapacity
	}
	return &csvStore{cap: capacity, byID: make(map[string]*model.CSVData)}
}

func (s *csvStore) Put(id string, data *model.CSVData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		s.order = append(s.order, id)
	}
	s.byID[id] = data
	for len(s.order) > s.cap {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *csvStore) Get(id string) (*model.CSVData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	return d, ok
}
