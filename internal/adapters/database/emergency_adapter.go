package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

var emergencyColumns = []interface{}{
	"id", "patient_id", "description", "location", "latitude", "longitude",
	"status", "created_at", "updated_at",
}

// EmergencyAdapter implements the EmergencyRepository interface
type EmergencyAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewEmergencyAdapter creates a new emergency adapter
func NewEmergencyAdapter(client *postgres.Client) repositories.EmergencyRepository {
	return &EmergencyAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new emergency
func (a *EmergencyAdapter) Create(ctx context.Context, emergency *entities.Emergency) error {
	record := goqu.Record{
		"id":          emergency.ID,
		"patient_id":  emergency.PatientID,
		"description": emergency.Description,
		"location":    emergency.Location,
		"latitude":    emergency.Latitude,
		"longitude":   emergency.Longitude,
		"status":      emergency.Status,
		"created_at":  emergency.CreatedAt,
		"updated_at":  emergency.UpdatedAt,
	}

	query, args, err := a.db.Insert("emergencies").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create emergency", err)
	}

	return nil
}

// GetByID retrieves an emergency by ID
func (a *EmergencyAdapter) GetByID(ctx context.Context, id string) (*entities.Emergency, error) {
	query, args, err := a.db.Select(emergencyColumns...).
		From("emergencies").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	emergency, err := scanEmergency(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("emergency with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get emergency", err)
	}

	return emergency, nil
}

// GetByIDs retrieves emergencies by ID
func (a *EmergencyAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Emergency, error) {
	if len(ids) == 0 {
		return []*entities.Emergency{}, nil
	}

	query, args, err := a.db.Select(emergencyColumns...).
		From("emergencies").
		Where(goqu.Ex{"id": ids}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.query(ctx, query, args)
}

// ListByPatient retrieves a patient's emergencies, newest first
func (a *EmergencyAdapter) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Emergency, error) {
	ds := a.db.Select(emergencyColumns...).
		From("emergencies").
		Where(goqu.Ex{"patient_id": patientID}).
		Order(goqu.C("created_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.query(ctx, query, args)
}

// Cancel moves an open emergency to cancelled
func (a *EmergencyAdapter) Cancel(ctx context.Context, id string) (bool, error) {
	query, args, err := a.db.Update("emergencies").
		Set(goqu.Record{
			"status":     entities.EmergencyStatusCancelled,
			"updated_at": time.Now(),
		}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("status").NotIn(entities.EmergencyStatusCancelled, entities.EmergencyStatusCompleted),
		).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build cancel query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to cancel emergency", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}

	return rowsAffected > 0, nil
}

func (a *EmergencyAdapter) query(ctx context.Context, query string, args []interface{}) ([]*entities.Emergency, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list emergencies", err)
	}
	defer rows.Close()

	emergencies := make([]*entities.Emergency, 0)
	for rows.Next() {
		emergency, err := scanEmergency(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan emergency", err)
		}
		emergencies = append(emergencies, emergency)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate emergencies", err)
	}

	return emergencies, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmergency(row rowScanner) (*entities.Emergency, error) {
	emergency := &entities.Emergency{}
	var location sql.NullString
	var latitude, longitude sql.NullFloat64

	err := row.Scan(
		&emergency.ID,
		&emergency.PatientID,
		&emergency.Description,
		&location,
		&latitude,
		&longitude,
		&emergency.Status,
		&emergency.CreatedAt,
		&emergency.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if location.Valid {
		emergency.Location = &location.String
	}
	if latitude.Valid {
		emergency.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		emergency.Longitude = &longitude.Float64
	}

	return emergency, nil
}
