package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/firstresponder/backend/internal/adapters/memory"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/firstresponder/backend/pkg/config"
)

// Seeds the demo frontline directory into PostgreSQL. Existing rows are kept.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()
	db := goqu.New("postgres", pgClient.DB())

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				emergency_responses,
				emergencies,
				profiles,
				frontline_types
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	// 1. Seed frontline types
	types := memory.DemoFrontlineTypes()
	typeRows := make([]interface{}, 0, len(types))
	for _, ft := range types {
		typeRows = append(typeRows, goqu.Record{"id": ft.ID, "name": ft.Name})
	}
	query, args, err := db.Insert("frontline_types").
		Rows(typeRows...).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		log.Fatalf("Failed to build frontline type insert: %v", err)
	}
	res, err := pgClient.DB().ExecContext(ctx, query, args...)
	if err != nil {
		log.Fatalf("Failed to seed frontline types: %v", err)
	}
	inserted, _ := res.RowsAffected()
	log.Printf("Seeded %d of %d frontline types", inserted, len(types))

	// 2. Seed patients and frontline workers
	profiles := memory.DemoProfiles(time.Now())
	profileRows := make([]interface{}, 0, len(profiles))
	for _, p := range profiles {
		profileRows = append(profileRows, goqu.Record{
			"id":                  p.ID,
			"full_name":           p.FullName,
			"phone":               p.Phone,
			"email":               p.Email,
			"is_frontline_worker": p.IsFrontlineWorker,
			"frontline_type":      p.FrontlineTypeID,
			"created_at":          p.CreatedAt,
			"updated_at":          p.UpdatedAt,
		})
	}
	query, args, err = db.Insert("profiles").
		Rows(profileRows...).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		log.Fatalf("Failed to build profile insert: %v", err)
	}
	res, err = pgClient.DB().ExecContext(ctx, query, args...)
	if err != nil {
		log.Fatalf("Failed to seed profiles: %v", err)
	}
	inserted, _ = res.RowsAffected()
	log.Printf("Seeded %d of %d profiles", inserted, len(profiles))

	log.Println("Seeding complete")
}
