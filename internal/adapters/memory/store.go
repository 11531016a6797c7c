package memory

import (
	"sync"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// Store holds dispatch records in process memory. It is selected with
// DISPATCH_STORE=memory and enforces the same uniqueness rules as the
// Postgres schema.
type Store struct {
	mu          sync.RWMutex
	emergencies map[string]entities.Emergency
	responses   map[string]entities.EmergencyResponse
	order       []string
	pairs       map[string]string
	profiles    map[string]entities.Profile
	types       map[string]entities.FrontlineType
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		emergencies: make(map[string]entities.Emergency),
		responses:   make(map[string]entities.EmergencyResponse),
		pairs:       make(map[string]string),
		profiles:    make(map[string]entities.Profile),
		types:       make(map[string]entities.FrontlineType),
	}
}

// PutProfile adds or replaces a profile
func (s *Store) PutProfile(p entities.Profile) {
	s.mu.Lock()
	s.profiles[p.ID] = p
	s.mu.Unlock()
}

// DeleteProfile removes a profile; rows referring to it are kept
func (s *Store) DeleteProfile(id string) {
	s.mu.Lock()
	delete(s.profiles, id)
	s.mu.Unlock()
}

// PutFrontlineType adds or replaces a frontline type
func (s *Store) PutFrontlineType(ft entities.FrontlineType) {
	s.mu.Lock()
	s.types[ft.ID] = ft
	s.mu.Unlock()
}

// Emergencies returns the emergency repository view of the store
func (s *Store) Emergencies() *EmergencyRepository { return &EmergencyRepository{s: s} }

// Responses returns the response repository view of the store
func (s *Store) Responses() *ResponseRepository { return &ResponseRepository{s: s} }

// Profiles returns the profile repository view of the store
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{s: s} }

// FrontlineTypes returns the frontline type repository view of the store
func (s *Store) FrontlineTypes() *FrontlineTypeRepository { return &FrontlineTypeRepository{s: s} }

func pairKey(emergencyID, responderID string) string {
	return emergencyID + "/" + responderID
}
