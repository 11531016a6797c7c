package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

var responseColumns = []interface{}{
	"id", "emergency_id", "responder_id", "status", "created_at", "updated_at",
}

// EmergencyResponseAdapter implements the EmergencyResponseRepository interface
type EmergencyResponseAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewEmergencyResponseAdapter creates a new emergency response adapter
func NewEmergencyResponseAdapter(client *postgres.Client) repositories.EmergencyResponseRepository {
	return &EmergencyResponseAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// BulkCreate inserts every response in a single statement
func (a *EmergencyResponseAdapter) BulkCreate(ctx context.Context, responses []*entities.EmergencyResponse) (int, error) {
	if len(responses) == 0 {
		return 0, nil
	}

	rows := make([]interface{}, 0, len(responses))
	for _, r := range responses {
		rows = append(rows, goqu.Record{
			"id":           r.ID,
			"emergency_id": r.EmergencyID,
			"responder_id": r.ResponderID,
			"status":       r.Status,
			"created_at":   r.CreatedAt,
			"updated_at":   r.UpdatedAt,
		})
	}

	query, args, err := a.db.Insert("emergency_responses").
		Rows(rows...).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build insert query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to create emergency responses", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}

	return int(rowsAffected), nil
}

// GetByID retrieves a response by ID
func (a *EmergencyResponseAdapter) GetByID(ctx context.Context, id string) (*entities.EmergencyResponse, error) {
	query, args, err := a.db.Select(responseColumns...).
		From("emergency_responses").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	response, err := scanResponse(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("emergency response with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get emergency response", err)
	}

	return response, nil
}

// ListByEmergency retrieves the responses of an emergency in insertion order.
// seq is assigned per row, so rows of one bulk insert keep their fan-out order.
func (a *EmergencyResponseAdapter) ListByEmergency(ctx context.Context, emergencyID string) ([]*entities.EmergencyResponse, error) {
	query, args, err := a.db.Select(responseColumns...).
		From("emergency_responses").
		Where(goqu.Ex{"emergency_id": emergencyID}).
		Order(goqu.C("seq").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.query(ctx, query, args)
}

// ListByResponder retrieves a responder's assignments, newest first
func (a *EmergencyResponseAdapter) ListByResponder(ctx context.Context, responderID string) ([]*entities.EmergencyResponse, error) {
	query, args, err := a.db.Select(responseColumns...).
		From("emergency_responses").
		Where(goqu.Ex{"responder_id": responderID}).
		Order(goqu.C("created_at").Desc(), goqu.C("seq").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.query(ctx, query, args)
}

// Decide records a decision on a pending response. The pending check is part
// of the UPDATE so concurrent decisions cannot both win.
func (a *EmergencyResponseAdapter) Decide(ctx context.Context, id string, status entities.ResponseStatus) (bool, error) {
	query, args, err := a.db.Update("emergency_responses").
		Set(goqu.Record{
			"status":     status,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{
			"id":     id,
			"status": entities.ResponseStatusPending,
		}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to update emergency response", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	// Nothing matched: either answered already or missing
	if _, err := a.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (a *EmergencyResponseAdapter) query(ctx context.Context, query string, args []interface{}) ([]*entities.EmergencyResponse, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list emergency responses", err)
	}
	defer rows.Close()

	responses := make([]*entities.EmergencyResponse, 0)
	for rows.Next() {
		response, err := scanResponse(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan emergency response", err)
		}
		responses = append(responses, response)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate emergency responses", err)
	}

	return responses, nil
}

func scanResponse(row rowScanner) (*entities.EmergencyResponse, error) {
	response := &entities.EmergencyResponse{}
	err := row.Scan(
		&response.ID,
		&response.EmergencyID,
		&response.ResponderID,
		&response.Status,
		&response.CreatedAt,
		&response.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return response, nil
}
