// AngelaMos | 2026
// postgres.go

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

// Schema creates the licenses table. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS licenses (
		code           TEXT PRIMARY KEY,
		tier           TEXT        NOT NULL,
		max_questions  INTEGER     NOT NULL CHECK (max_questions > 0),
		max_days       INTEGER     NOT NULL CHECK (max_days > 0),
		activated_at   TIMESTAMPTZ,
		questions_used INTEGER     NOT NULL DEFAULT 0 CHECK (questions_used >= 0),
		status         TEXT        NOT NULL DEFAULT 'ACTIVE',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_licenses_tier ON licenses (tier)`,
}

const licenseColumns = `code, tier, max_questions, max_days, activated_at,
	questions_used, status, created_at, updated_at`

type Postgres struct {
	db core.DBTX
}

func NewPostgres(db core.DBTX) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, code string) (*license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE code = $1`

	var l license.License
	err := p.db.GetContext(ctx, &l, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get license: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get license: %w", err)
	}

	return &l, nil
}

func (p *Postgres) Create(ctx context.Context, l *license.License) error {
	query := `
		INSERT INTO licenses (` + licenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := p.db.ExecContext(ctx, query, args(l)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create license: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create license: %w", err)
	}

	return nil
}

func (p *Postgres) Put(ctx context.Context, l *license.License) error {
	query := `
		INSERT INTO licenses (` + licenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			tier           = EXCLUDED.tier,
			max_questions  = EXCLUDED.max_questions,
			max_days       = EXCLUDED.max_days,
			activated_at   = EXCLUDED.activated_at,
			questions_used = EXCLUDED.questions_used,
			status         = EXCLUDED.status,
			updated_at     = EXCLUDED.updated_at`

	if _, err := p.db.ExecContext(ctx, query, args(l)...); err != nil {
		return fmt.Errorf("put license: %w", err)
	}

	return nil
}

func (p *Postgres) Delete(ctx context.Context, code string) error {
	result, err := p.db.ExecContext(ctx,
		`DELETE FROM licenses WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete license: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete license: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete license: %w", core.ErrNotFound)
	}

	return nil
}

func (p *Postgres) List(ctx context.Context) ([]license.License, error) {
	query := `SELECT ` + licenseColumns + `
		FROM licenses
		ORDER BY created_at, code`

	var ls []license.License
	if err := p.db.SelectContext(ctx, &ls, query); err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	if ls == nil {
		ls = []license.License{}
	}

	return ls, nil
}

// AddUsage applies delta in a single statement, so concurrent consumers of
// the same code serialize on the row lock.
func (p *Postgres) AddUsage(
	ctx context.Context,
	code string,
	delta int,
) (*license.License, error) {
	query := `
		UPDATE licenses
		SET questions_used = GREATEST(questions_used + $2, 0),
		    updated_at = NOW()
		WHERE code = $1
		RETURNING ` + licenseColumns

	var l license.License
	err := p.db.GetContext(ctx, &l, query, code, delta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("add usage: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("add usage: %w", err)
	}

	return &l, nil
}

// MarkActivated stamps activated_at only on an unactivated, unrevoked row,
// so concurrent activations stamp at most once and never revive a revoked
// code.
func (p *Postgres) MarkActivated(
	ctx context.Context,
	code string,
	at time.Time,
) (*license.License, bool, error) {
	query := `
		UPDATE licenses
		SET activated_at = $2, updated_at = $2
		WHERE code = $1 AND activated_at IS NULL AND status <> $3
		RETURNING ` + licenseColumns

	l, changed, err := p.updateOrGet(ctx, code, query, code, at.UTC(), license.StatusRevoked)
	if err != nil {
		return nil, false, fmt.Errorf("mark activated: %w", err)
	}
	return l, changed, nil
}

func (p *Postgres) SetStatus(
	ctx context.Context,
	code string,
	status license.RecordStatus,
) (*license.License, bool, error) {
	query := `
		UPDATE licenses
		SET status = $2, updated_at = NOW()
		WHERE code = $1 AND status <> $2
		RETURNING ` + licenseColumns

	l, changed, err := p.updateOrGet(ctx, code, query, code, status)
	if err != nil {
		return nil, false, fmt.Errorf("set status: %w", err)
	}
	return l, changed, nil
}

// updateOrGet runs a conditional UPDATE ... RETURNING. When its guard
// matches no row the current record is returned unchanged.
func (p *Postgres) updateOrGet(
	ctx context.Context,
	code, query string,
	queryArgs ...any,
) (*license.License, bool, error) {
	var l license.License
	err := p.db.GetContext(ctx, &l, query, queryArgs...)
	if err == nil {
		return &l, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	cur, err := p.Get(ctx, code)
	if err != nil {
		return nil, false, err
	}
	return cur, false, nil
}

func args(l *license.License) []any {
	return []any{
		l.Code,
		l.Tier,
		l.MaxQuestions,
		l.MaxDays,
		l.ActivatedAt,
		l.QuestionsUsed,
		l.Status,
		l.CreatedAt,
		l.UpdatedAt,
	}
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
