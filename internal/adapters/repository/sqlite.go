package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/metrics"
)

//go:embed sql/*
var ddl embed.FS

// SQLiteProspects is a Prospects persisted in SQLite. The full prospect is
// stored as JSON; overall and category are copied into columns for queries.
type SQLiteProspects struct {
	db  *sql.DB
	log logger.Logger
}

// OpenSQLite opens (and creates if needed) the database at dsn. Use
// ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, dsn string, opts ...SQLiteOption) (*SQLiteProspects, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn not specified")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	s := &SQLiteProspects{db: db, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	b, err := ddl.ReadFile("sql/ddl.sql")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(b)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema in %s: %w", dsn, err)
	}
	s.log.Debug(ctx, "sqlite schema ready", logger.String("dsn", dsn))
	return s, nil
}

// Close closes the database.
func (s *SQLiteProspects) Close() error {
	return s.db.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func scoreColumns(p *model.Prospect) (any, any) {
	if p.LeadScore == nil {
		return nil, nil
	}
	return p.LeadScore.Overall(), string(p.LeadScore.Category())
}

// Create inserts p, assigning an id when empty. A taken id yields ErrConflict.
func (s *SQLiteProspects) Create(ctx context.Context, p *model.Prospect) (string, error) {
	defer observe("prospect_create", time.Now())

	cp, err := prepareCreate(p, time.Now().UTC())
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("encode prospect %s: %w", cp.ID, err)
	}
	overall, category := scoreColumns(cp)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prospect (id, company_name, deal_stage, overall, category, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.CompanyName, string(cp.DealStage), overall, category, string(payload),
		cp.CreatedAt.UnixNano(), cp.UpdatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("prospect %s: %w", cp.ID, ErrConflict)
		}
		return "", fmt.Errorf("insert prospect %s: %w", cp.ID, err)
	}
	return cp.ID, nil
}

// Get loads the prospect with id or returns ErrNotFound.
func (s *SQLiteProspects) Get(ctx context.Context, id string) (*model.Prospect, error) {
	defer observe("prospect_get", time.Now())
	return getPayload(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getPayload(ctx context.Context, q queryRower, id string) (*model.Prospect, error) {
	var payload string
	err := q.QueryRowContext(ctx, `SELECT payload FROM prospect WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prospect %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select prospect %s: %w", id, err)
	}
	return decodeProspect(payload)
}

func decodeProspect(payload string) (*model.Prospect, error) {
	var p model.Prospect
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("decode prospect: %w", err)
	}
	return &p, nil
}

// List returns every prospect ordered by creation time.
func (s *SQLiteProspects) List(ctx context.Context) ([]*model.Prospect, error) {
	defer observe("prospect_list", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM prospect ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list prospects: %w", err)
	}
	defer rows.Close()

	var out []*model.Prospect
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan prospect: %w", err)
		}
		p, err := decodeProspect(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prospects: %w", err)
	}
	return out, nil
}

// Update applies fn inside a transaction and writes the result back.
func (s *SQLiteProspects) Update(ctx context.Context, id string, fn func(*model.Prospect) error) (*model.Prospect, error) {
	defer observe("prospect_update", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getPayload(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	createdAt := cur.CreatedAt
	if err := fn(cur); err != nil {
		return nil, err
	}
	cur.ID = id
	cur.CreatedAt = createdAt
	cur.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(cur)
	if err != nil {
		return nil, fmt.Errorf("encode prospect %s: %w", id, err)
	}
	overall, category := scoreColumns(cur)
	if _, err := tx.ExecContext(ctx,
		`UPDATE prospect SET company_name = ?, deal_stage = ?, overall = ?, category = ?, payload = ?, updated_at = ?
		 WHERE id = ?`,
		cur.CompanyName, string(cur.DealStage), overall, category, string(payload), cur.UpdatedAt.UnixNano(), id); err != nil {
		return nil, fmt.Errorf("update prospect %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update %s: %w", id, err)
	}
	return cur, nil
}

// Count returns the number of stored prospects.
func (s *SQLiteProspects) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prospect`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count prospects: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ Prospects = (*SQLiteProspects)(nil)
