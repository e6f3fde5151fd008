package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"credentialwatch/internal/credential/models"
	id "credentialwatch/pkg/domain"
	"credentialwatch/pkg/platform/sentinel"
)

// Postgres persists credentials in PostgreSQL. The
// (provider_id, type, number) uniqueness lives in a unique index so concurrent
// upserts of the same key cannot create duplicates.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const credentialColumns = `id, provider_id, type, issuer, number, status, issue_date, expiry_date, last_verified_at, metadata, created_at, updated_at`

func (s *Postgres) Upsert(ctx context.Context, credential *models.Credential) error {
	metadata, err := marshalMetadata(credential.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			issuer = EXCLUDED.issuer,
			status = EXCLUDED.status,
			issue_date = EXCLUDED.issue_date,
			expiry_date = EXCLUDED.expiry_date,
			last_verified_at = EXCLUDED.last_verified_at,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(credential.ID),
		uuid.UUID(credential.ProviderID),
		credential.Type,
		credential.Issuer,
		credential.Number,
		string(credential.Status),
		credential.IssueDate,
		credential.ExpiryDate,
		credential.LastVerifiedAt,
		metadata,
		credential.CreatedAt,
		credential.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`
	return scanCredential(s.db.QueryRowContext(ctx, query, uuid.UUID(credentialID)))
}

func (s *Postgres) FindByKey(ctx context.Context, key models.Key) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE provider_id = $1 AND type = $2 AND number = $3`
	return scanCredential(s.db.QueryRowContext(ctx, query, uuid.UUID(key.ProviderID), key.Type, key.Number))
}

func (s *Postgres) ListByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE provider_id = $1 ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(providerID))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()
	return collectCredentials(rows)
}

func (s *Postgres) Search(ctx context.Context, q Query) ([]*models.Credential, error) {
	var (
		conds []string
		args  []any
	)
	if q.ProviderID != nil {
		args = append(args, uuid.UUID(*q.ProviderID))
		conds = append(conds, "provider_id = $"+strconv.Itoa(len(args)))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if q.ExpiryOnOrBefore != nil {
		args = append(args, models.DateOf(*q.ExpiryOnOrBefore))
		conds = append(conds, "expiry_date IS NOT NULL AND expiry_date <= $"+strconv.Itoa(len(args)))
	}
	query := `SELECT ` + credentialColumns + ` FROM credentials`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search credentials: %w", err)
	}
	defer rows.Close()
	return collectCredentials(rows)
}

func collectCredentials(rows *sql.Rows) ([]*models.Credential, error) {
	var out []*models.Credential
	for rows.Next() {
		c, err := scanCredentialRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row *sql.Row) (*models.Credential, error) {
	c, err := scanCredentialRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanCredentialRow(row rowScanner) (*models.Credential, error) {
	var (
		c          models.Credential
		rawID      uuid.UUID
		rawPID     uuid.UUID
		status     string
		issueDate  sql.NullTime
		expiryDate sql.NullTime
		verifiedAt sql.NullTime
		metadata   []byte
	)
	err := row.Scan(&rawID, &rawPID, &c.Type, &c.Issuer, &c.Number, &status,
		&issueDate, &expiryDate, &verifiedAt, &metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	c.ID = id.CredentialID(rawID)
	c.ProviderID = id.ProviderID(rawPID)
	c.Status = models.Status(status)
	if issueDate.Valid {
		t := issueDate.Time
		c.IssueDate = &t
	}
	if expiryDate.Valid {
		t := expiryDate.Time
		c.ExpiryDate = &t
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		c.LastVerifiedAt = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal credential metadata: %w", err)
		}
	}
	return &c, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal credential metadata: %w", err)
	}
	return b, nil
}
