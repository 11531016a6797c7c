package memory

import (
	"fmt"
	"time"

	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

// DemoFrontlineTypes is the frontline directory used by DISPATCH_SEED
func DemoFrontlineTypes() []entities.FrontlineType {
	return []entities.FrontlineType{
		{ID: "cfr", Name: "Community First Responder"},
		{ID: "asha", Name: "ASHA Worker"},
		{ID: "anm", Name: "ANM"},
		{ID: "phc", Name: "PHC Staff"},
	}
}

// DemoProfiles returns two patients and one frontline worker per demo type,
// with staggered creation times so fan-out order is stable
func DemoProfiles(now time.Time) []entities.Profile {
	base := now.Add(-24 * time.Hour).UTC().Truncate(time.Second)
	profiles := []entities.Profile{
		{ID: "demo-patient-1", FullName: "Meera Nair", Phone: "+919800000001", Email: "meera@example.com", CreatedAt: base, UpdatedAt: base},
		{ID: "demo-patient-2", FullName: "Arjun Rao", Phone: "+919800000002", CreatedAt: base, UpdatedAt: base},
	}

	for i, ft := range DemoFrontlineTypes() {
		typeID := ft.ID
		created := base.Add(time.Duration(i+1) * time.Minute)
		profiles = append(profiles, entities.Profile{
			ID:                fmt.Sprintf("demo-%s-1", ft.ID),
			FullName:          fmt.Sprintf("%s %d", ft.Name, 1),
			Phone:             fmt.Sprintf("+91990000%04d", i+1),
			IsFrontlineWorker: true,
			FrontlineTypeID:   &typeID,
			CreatedAt:         created,
			UpdatedAt:         created,
		})
	}
	return profiles
}

// SeedDemo loads the demo directory into the store
func (s *Store) SeedDemo(now time.Time) {
	for _, ft := range DemoFrontlineTypes() {
		s.PutFrontlineType(ft)
	}
	for _, p := range DemoProfiles(now) {
		s.PutProfile(p)
	}
}
