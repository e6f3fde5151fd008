package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"credentialwatch/internal/provider/models"
	id "credentialwatch/pkg/domain"
	"credentialwatch/pkg/platform/sentinel"
)

// Postgres persists providers in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const providerColumns = `id, npi, full_name, dept, location, primary_specialty, is_active, created_at, updated_at`

func (s *Postgres) Upsert(ctx context.Context, provider *models.Provider) error {
	query := `
		INSERT INTO providers (` + providerColumns + `)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			npi = EXCLUDED.npi,
			full_name = EXCLUDED.full_name,
			dept = EXCLUDED.dept,
			location = EXCLUDED.location,
			primary_specialty = EXCLUDED.primary_specialty,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(provider.ID),
		provider.NPI,
		provider.FullName,
		provider.Dept,
		provider.Location,
		provider.PrimarySpecialty,
		provider.Active,
		provider.CreatedAt,
		provider.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		// 23505 is unique_violation; the only unique index besides the PK
		// is on npi.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("upsert provider: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, providerID id.ProviderID) (*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(providerID)))
}

func (s *Postgres) FindByNPI(ctx context.Context, npi string) (*models.Provider, error) {
	if npi == "" {
		return nil, sentinel.ErrNotFound
	}
	query := `SELECT ` + providerColumns + ` FROM providers WHERE npi = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, npi))
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Provider, error) {
	var (
		p         models.Provider
		rawID     uuid.UUID
		npi       sql.NullString
		dept      sql.NullString
		location  sql.NullString
		specialty sql.NullString
	)
	err := row.Scan(&rawID, &npi, &p.FullName, &dept, &location, &specialty, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan provider: %w", err)
	}
	p.ID = id.ProviderID(rawID)
	p.NPI = npi.String
	p.Dept = dept.String
	p.Location = location.String
	p.PrimarySpecialty = specialty.String
	return &p, nil
}
