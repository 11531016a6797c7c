package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

// FrontlineTypeAdapter implements the FrontlineTypeRepository interface
type FrontlineTypeAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewFrontlineTypeAdapter creates a new frontline type adapter
func NewFrontlineTypeAdapter(client *postgres.Client) repositories.FrontlineTypeRepository {
	return &FrontlineTypeAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// List retrieves all frontline types ordered by name
func (a *FrontlineTypeAdapter) List(ctx context.Context) ([]*entities.FrontlineType, error) {
	query, args, err := a.db.Select("id", "name").
		From("frontline_types").
		Order(goqu.C("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.query(ctx, query, args)
}

// GetByIDs retrieves frontline types by ID
func (a *FrontlineTypeAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.FrontlineType, error) {
	if len(ids) == 0 {
		return []*entities.FrontlineType{}, nil
	}

	query, args, err := a.db.Select("id", "name").
		From("frontline_types").
		Where(goqu.Ex{"id": ids}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.query(ctx, query, args)
}

func (a *FrontlineTypeAdapter) query(ctx context.Context, query string, args []interface{}) ([]*entities.FrontlineType, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list frontline types", err)
	}
	defer rows.Close()

	types := make([]*entities.FrontlineType, 0)
	for rows.Next() {
		ft := &entities.FrontlineType{}
		if err := rows.Scan(&ft.ID, &ft.Name); err != nil {
			return nil, apperrors.NewInternalError("failed to scan frontline type", err)
		}
		types = append(types, ft)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate frontline types", err)
	}

	return types, nil
}
