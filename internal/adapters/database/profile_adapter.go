package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
	"github.com/zatekoja/firstresponder/backend/internal/domain/repositories"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/firstresponder/backend/pkg/errors"
)

var profileColumns = []interface{}{
	"id", "full_name", "phone", "email", "is_frontline_worker", "frontline_type",
	"created_at", "updated_at",
}

// ProfileAdapter implements the ProfileRepository interface
type ProfileAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProfileAdapter creates a new profile adapter
func NewProfileAdapter(client *postgres.Client) repositories.ProfileRepository {
	return &ProfileAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a profile by ID
func (a *ProfileAdapter) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	return a.getOne(ctx, goqu.C("id").Eq(id), fmt.Sprintf("profile with id %s not found", id))
}

// GetByIDs retrieves profiles by ID
func (a *ProfileAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Profile, error) {
	if len(ids) == 0 {
		return []*entities.Profile{}, nil
	}

	query, args, err := a.db.Select(profileColumns...).
		From("profiles").
		Where(goqu.Ex{"id": ids}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.query(ctx, query, args)
}

// GetByIdentifier retrieves a profile by phone or email
func (a *ProfileAdapter) GetByIdentifier(ctx context.Context, identifier entities.Identifier) (*entities.Profile, error) {
	if identifier.IsZero() {
		return nil, apperrors.NewValidationError("identifier is required")
	}

	var cond exp.Expression
	switch identifier.Kind() {
	case entities.IdentifierPhone:
		cond = goqu.C("phone").Eq(identifier.Value())
	case entities.IdentifierEmail:
		cond = goqu.Func("LOWER", goqu.C("email")).Eq(identifier.Value())
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported identifier kind %q", identifier.Kind()))
	}

	return a.getOne(ctx, cond, fmt.Sprintf("profile with %s %s not found", identifier.Kind(), identifier.Value()))
}

// ListFrontlineWorkers retrieves up to limit frontline workers
func (a *ProfileAdapter) ListFrontlineWorkers(ctx context.Context, limit int) ([]*entities.Profile, error) {
	ds := a.db.Select(profileColumns...).
		From("profiles").
		Where(goqu.Ex{"is_frontline_worker": true}).
		Order(goqu.C("created_at").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.query(ctx, query, args)
}

func (a *ProfileAdapter) getOne(ctx context.Context, cond exp.Expression, notFound string) (*entities.Profile, error) {
	query, args, err := a.db.Select(profileColumns...).
		From("profiles").
		Where(cond).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	profile, err := scanProfile(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get profile", err)
	}

	return profile, nil
}

func (a *ProfileAdapter) query(ctx context.Context, query string, args []interface{}) ([]*entities.Profile, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list profiles", err)
	}
	defer rows.Close()

	profiles := make([]*entities.Profile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan profile", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate profiles", err)
	}

	return profiles, nil
}

func scanProfile(row rowScanner) (*entities.Profile, error) {
	profile := &entities.Profile{}
	var fullName, phone, email, frontlineType sql.NullString

	err := row.Scan(
		&profile.ID,
		&fullName,
		&phone,
		&email,
		&profile.IsFrontlineWorker,
		&frontlineType,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.FullName = fullName.String
	profile.Phone = phone.String
	profile.Email = email.String
	if frontlineType.Valid {
		profile.FrontlineTypeID = &frontlineType.String
	}

	return profile, nil
}
