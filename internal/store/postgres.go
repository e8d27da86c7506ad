package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"ShareFlow/internal/model"
)

// PostgresStore persists projects to PostgreSQL through a pgx pool.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *zap.SugaredLogger
}

// NewPostgresStore connects to dsn and creates the tables when missing.
func NewPostgresStore(ctx context.Context, dsn string, log *zap.SugaredLogger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: pool, log: log}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("postgres store connected")
	return s, nil
}

// Pool exposes the underlying pool for health checks.
func (s *PostgresStore) Pool() *pgxpool.Pool { return s.db }

func (s *PostgresStore) migrate(ctx context.Context) error {
	const schema = `
create table if not exists projects (
	id             text primary key,
	name           text not null,
	funding_total  double precision not null default 0,
	funding_target double precision not null default 0,
	created_at     timestamptz not null,
	updated_at     timestamptz not null
);
create table if not exists roles (
	project_id       text not null references projects(id) on delete cascade,
	id               text not null,
	position         integer not null,
	name             text not null,
	percent          double precision not null,
	wallet_address   text not null default '',
	stream_active    boolean not null default false,
	stream_flow_rate text,
	primary key (project_id, id)
);
create table if not exists expenses (
	project_id    text not null references projects(id) on delete cascade,
	position      integer not null,
	name          text not null,
	amount_usdc   text not null,
	vendor_wallet text not null default '',
	payout_type   text not null default '',
	primary key (project_id, position)
);
create table if not exists funding_snapshots (
	id             bigserial primary key,
	project_id     text not null,
	recorded_at    timestamptz not null,
	funding_total  double precision,
	funding_target double precision,
	percent_funded double precision
);
create index if not exists idx_funding_project_ts on funding_snapshots(project_id, recorded_at);
`
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) CreateProject(ctx context.Context, p *model.Project) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
insert into projects (id, name, funding_total, funding_target, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6);
`
	if _, err := tx.Exec(ctx, q, p.ID, p.Name, p.FundingTotal, p.FundingTarget, p.CreatedAt, p.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert project: %w", err)
	}
	if err := s.writeChildren(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	const q = `
select id, name, funding_total, funding_target, created_at, updated_at
from projects where id = $1;
`
	var p model.Project
	err := s.db.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.Name, &p.FundingTotal, &p.FundingTarget, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	rows, err := s.db.Query(ctx, `
select id, name, percent, wallet_address, stream_active, stream_flow_rate
from roles where project_id = $1 order by position;
`, id)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Percent, &r.WalletAddress, &r.StreamActive, &r.FlowRate); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan role: %w", err)
		}
		p.Roles = append(p.Roles, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(ctx, `
select name, amount_usdc, vendor_wallet, payout_type
from expenses where project_id = $1 order by position;
`, id)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.Expense
		var payout string
		if err := rows.Scan(&e.Name, &e.AmountUSDC, &e.VendorWallet, &payout); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.PayoutType = model.PayoutType(payout)
		p.Expenses = append(p.Expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, p *model.Project) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
update projects set name = $2, funding_total = $3, funding_target = $4, updated_at = $5
where id = $1;
`, p.ID, p.Name, p.FundingTotal, p.FundingTarget, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `delete from roles where project_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	if _, err := tx.Exec(ctx, `delete from expenses where project_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	if err := s.writeChildren(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) writeChildren(ctx context.Context, tx pgx.Tx, p *model.Project) error {
	batch := &pgx.Batch{}
	for i, r := range p.Roles {
		batch.Queue(`
insert into roles (project_id, id, position, name, percent, wallet_address, stream_active, stream_flow_rate)
values ($1, $2, $3, $4, $5, $6, $7, $8);
`, p.ID, r.ID, i, r.Name, r.Percent, r.WalletAddress, r.StreamActive, r.FlowRate)
	}
	for i, e := range p.Expenses {
		batch.Queue(`
insert into expenses (project_id, position, name, amount_usdc, vendor_wallet, payout_type)
values ($1, $2, $3, $4, $5, $6);
`, p.ID, i, e.Name, e.AmountUSDC, e.VendorWallet, string(e.PayoutType))
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write roles and expenses: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.Query(ctx, `select id from projects order by created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan project ids: %w", err)
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

func (s *PostgresStore) RecordFundingSnapshot(ctx context.Context, snap *model.FundingSnapshot) error {
	if snap.RecordedAt.IsZero() {
		snap.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
insert into funding_snapshots (project_id, recorded_at, funding_total, funding_target, percent_funded)
values ($1, $2, $3, $4, $5);
`, snap.ProjectID, snap.RecordedAt, snap.FundingTotal, snap.FundingTarget, snap.PercentFunded)
	return err
}

func (s *PostgresStore) FundingSnapshots(ctx context.Context, projectID string, limit int) ([]model.FundingSnapshot, error) {
	rows, err := s.db.Query(ctx, `
select project_id, recorded_at, funding_total, funding_target, percent_funded
from funding_snapshots where project_id = $1
order by recorded_at desc, id desc limit $2;
`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.FundingSnapshot
	for rows.Next() {
		var snap model.FundingSnapshot
		if err := rows.Scan(&snap.ProjectID, &snap.RecordedAt, &snap.FundingTotal, &snap.FundingTarget, &snap.PercentFunded); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.log.Info("closing postgres store")
	s.db.Close()
	return nil
}
