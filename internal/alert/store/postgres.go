package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"credentialwatch/internal/alert/models"
	id "credentialwatch/pkg/domain"
	"credentialwatch/pkg/platform/sentinel"
)

// Postgres persists alerts in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const alertColumns = `id, provider_id, credential_id, severity, window_days, message, channel, created_at, resolved_at, resolution_note`

func (s *Postgres) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var credentialID any
	if alert.CredentialID != nil {
		credentialID = uuid.UUID(*alert.CredentialID)
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(alert.ID),
		uuid.UUID(alert.ProviderID),
		credentialID,
		string(alert.Severity),
		alert.WindowDays,
		alert.Message,
		alert.Channel,
		alert.CreatedAt,
		alert.ResolvedAt,
		alert.ResolutionNote,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlert(s.db.QueryRowContext(ctx, query, uuid.UUID(alertID)))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Execute loads the alert under FOR UPDATE, applies validate and mutate, and
// writes the resolution fields back in the same transaction.
func (s *Postgres) Execute(ctx context.Context, alertID id.AlertID, validate func(*models.Alert) error, mutate func(*models.Alert)) (*models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1 FOR UPDATE`
	alert, err := scanAlert(tx.QueryRowContext(ctx, query, uuid.UUID(alertID)))
	if err != nil {
		return nil, err
	}
	if err := validate(alert); err != nil {
		return nil, err
	}
	mutate(alert)

	update := `UPDATE alerts SET resolved_at = $2, resolution_note = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, uuid.UUID(alert.ID), alert.ResolvedAt, alert.ResolutionNote); err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit alert update: %w", err)
	}
	return alert, nil
}

func (s *Postgres) ListOpen(ctx context.Context, filter OpenFilter) ([]*models.Alert, error) {
	conds := []string{"resolved_at IS NULL"}
	var args []any
	if filter.ProviderID != nil {
		args = append(args, uuid.UUID(*filter.ProviderID))
		conds = append(conds, "provider_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Severity != "" {
		args = append(args, string(filter.Severity))
		conds = append(conds, "severity = $"+strconv.Itoa(len(args)))
	}
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func (s *Postgres) FindOpenDuplicate(ctx context.Context, providerID id.ProviderID, credentialID *id.CredentialID, severity models.Severity) (*models.Alert, error) {
	var (
		query string
		args  []any
	)
	if credentialID != nil {
		query = `SELECT ` + alertColumns + ` FROM alerts
			WHERE resolved_at IS NULL AND provider_id = $1 AND credential_id = $2 AND severity = $3
			ORDER BY created_at LIMIT 1`
		args = []any{uuid.UUID(providerID), uuid.UUID(*credentialID), string(severity)}
	} else {
		query = `SELECT ` + alertColumns + ` FROM alerts
			WHERE resolved_at IS NULL AND provider_id = $1 AND credential_id IS NULL AND severity = $2
			ORDER BY created_at LIMIT 1`
		args = []any{uuid.UUID(providerID), string(severity)}
	}
	return scanAlert(s.db.QueryRowContext(ctx, query, args...))
}

func (s *Postgres) CountOpenBySeverity(ctx context.Context, createdAfter *time.Time) (map[models.Severity]int, error) {
	query := `SELECT severity, COUNT(*) FROM alerts WHERE resolved_at IS NULL`
	var args []any
	if createdAfter != nil {
		args = append(args, *createdAfter)
		query += " AND created_at >= $1"
	}
	query += " GROUP BY severity"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count open alerts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Severity]int)
	for rows.Next() {
		var (
			severity string
			count    int
		)
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan alert count: %w", err)
		}
		counts[models.Severity(severity)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row *sql.Row) (*models.Alert, error) {
	a, err := scanAlertRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAlertRow(row rowScanner) (*models.Alert, error) {
	var (
		a            models.Alert
		rawID        uuid.UUID
		rawPID       uuid.UUID
		credentialID uuid.NullUUID
		severity     string
		resolvedAt   sql.NullTime
		note         sql.NullString
	)
	err := row.Scan(&rawID, &rawPID, &credentialID, &severity, &a.WindowDays,
		&a.Message, &a.Channel, &a.CreatedAt, &resolvedAt, &note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.ID = id.AlertID(rawID)
	a.ProviderID = id.ProviderID(rawPID)
	a.Severity = models.Severity(severity)
	if credentialID.Valid {
		c := id.CredentialID(credentialID.UUID)
		a.CredentialID = &c
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if note.Valid {
		n := note.String
		a.ResolutionNote = &n
	}
	return &a, nil
}
