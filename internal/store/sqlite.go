package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"ShareFlow/internal/model"
)

// SQLiteStore persists projects to an embedded SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.SugaredLogger
}

// sqliteDSN enables foreign keys (for ON DELETE CASCADE) and WAL, which lets
// dashboard reads proceed while an edit is being saved.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, log *zap.SugaredLogger) (*SQLiteStore, error) {
	// Pragmas in the DSN apply to every pooled connection, not just the first.
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infow("sqlite store opened", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			funding_total  REAL NOT NULL DEFAULT 0,
			funding_target REAL NOT NULL DEFAULT 0,
			created_at     INTEGER NOT NULL,
			updated_at     INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS roles (
			project_id       TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			id               TEXT NOT NULL,
			position         INTEGER NOT NULL,
			name             TEXT NOT NULL,
			percent          REAL NOT NULL,
			wallet_address   TEXT NOT NULL DEFAULT '',
			stream_active    INTEGER NOT NULL DEFAULT 0,
			stream_flow_rate TEXT,
			PRIMARY KEY (project_id, id)
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			position      INTEGER NOT NULL,
			name          TEXT NOT NULL,
			amount_usdc   TEXT NOT NULL,
			vendor_wallet TEXT NOT NULL DEFAULT '',
			payout_type   TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (project_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS funding_snapshots (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id     TEXT NOT NULL,
			timestamp      INTEGER NOT NULL,
			funding_total  REAL,
			funding_target REAL,
			percent_funded REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_funding_project_ts ON funding_snapshots(project_id, timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", strings.TrimSpace(stmt)[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) CreateProject(ctx context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, p.ID).Scan(&exists)
	if err == nil {
		return ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO projects
		(id, name, funding_total, funding_target, created_at, updated_at)
		VALUES (?,?,?,?,?,?)`,
		p.ID, p.Name, p.FundingTotal, p.FundingTarget,
		p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	if err := writeChildren(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `SELECT id, name, funding_total, funding_target, created_at, updated_at
		FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.FundingTotal, &p.FundingTarget, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()

	if p.Roles, err = s.roles(ctx, id); err != nil {
		return nil, err
	}
	if p.Expenses, err = s.expenses(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) roles(ctx context.Context, projectID string) ([]model.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, percent, wallet_address, stream_active, stream_flow_rate
		FROM roles WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var out []model.Role
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Percent, &r.WalletAddress, &r.StreamActive, &r.FlowRate); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) expenses(ctx context.Context, projectID string) ([]model.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, amount_usdc, vendor_wallet, payout_type
		FROM expenses WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []model.Expense
	for rows.Next() {
		var e model.Expense
		var payout string
		if err := rows.Scan(&e.Name, &e.AmountUSDC, &e.VendorWallet, &payout); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.PayoutType = model.PayoutType(payout)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateProject(ctx context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE projects
		SET name = ?, funding_total = ?, funding_target = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.FundingTotal, p.FundingTarget, p.UpdatedAt.UnixMilli(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE project_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE project_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	if err := writeChildren(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func writeChildren(ctx context.Context, tx *sql.Tx, p *model.Project) error {
	for i, r := range p.Roles {
		if _, err := tx.ExecContext(ctx, `INSERT INTO roles
			(project_id, id, position, name, percent, wallet_address, stream_active, stream_flow_rate)
			VALUES (?,?,?,?,?,?,?,?)`,
			p.ID, r.ID, i, r.Name, r.Percent, r.WalletAddress, r.StreamActive, r.FlowRate,
		); err != nil {
			return fmt.Errorf("insert role %s: %w", r.ID, err)
		}
	}
	for i, e := range p.Expenses {
		if _, err := tx.ExecContext(ctx, `INSERT INTO expenses
			(project_id, position, name, amount_usdc, vendor_wallet, payout_type)
			VALUES (?,?,?,?,?,?)`,
			p.ID, i, e.Name, e.AmountUSDC, e.VendorWallet, string(e.PayoutType),
		); err != nil {
			return fmt.Errorf("insert expense %d: %w", i, err)
		}
	}
	return nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Project, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProject(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *SQLiteStore) RecordFundingSnapshot(ctx context.Context, snap *model.FundingSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.RecordedAt.IsZero() {
		snap.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO funding_snapshots
		(project_id, timestamp, funding_total, funding_target, percent_funded)
		VALUES (?,?,?,?,?)`,
		snap.ProjectID, snap.RecordedAt.UnixMilli(),
		snap.FundingTotal, snap.FundingTarget, snap.PercentFunded,
	)
	return err
}

func (s *SQLiteStore) FundingSnapshots(ctx context.Context, projectID string, limit int) ([]model.FundingSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_id, timestamp, funding_total, funding_target, percent_funded
		FROM funding_snapshots WHERE project_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.FundingSnapshot
	for rows.Next() {
		var snap model.FundingSnapshot
		var ts int64
		if err := rows.Scan(&snap.ProjectID, &ts, &snap.FundingTotal, &snap.FundingTarget, &snap.PercentFunded); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.RecordedAt = time.UnixMilli(ts).UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error {
	s.log.Info("closing sqlite store")
	return s.db.Close()
}
