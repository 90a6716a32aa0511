package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// CreateRun inserts a run row.
func (s *RunStore) CreateRun(ctx context.Context, run domain.Run) error {
	const query = `
		INSERT INTO runs (id, mode, signer, chain_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.pool.Exec(ctx, query,
		run.ID, run.Mode, run.Signer, run.ChainID, string(run.Status), run.StartedAt,
	); err != nil {
		return fmt.Errorf("postgres: create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the terminal status of a run.
func (s *RunStore) FinishRun(ctx context.Context, id string, status domain.RunStatus, errMsg string) error {
	const query = `UPDATE runs SET status = $2, error = $3, finished_at = NOW() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("postgres: finish run %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: finish run %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

const runColumns = `id::text, mode, signer, chain_id, status, error, started_at, finished_at`

func scanRun(row pgx.Row) (domain.Run, error) {
	var r domain.Run
	var status string
	if err := row.Scan(&r.ID, &r.Mode, &r.Signer, &r.ChainID, &status, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
		return domain.Run{}, err
	}
	r.Status = domain.RunStatus(status)
	return r, nil
}

// ListRuns returns runs newest first, optionally filtered by signer and chain.
func (s *RunStore) ListRuns(ctx context.Context, opts domain.ListOpts) ([]domain.Run, error) {
	query, args := listRunsQuery(opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs rows: %w", err)
	}
	return runs, nil
}

func listRunsQuery(opts domain.ListOpts) (string, []any) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Signer != "" {
		query += fmt.Sprintf(" AND signer = $%d", argIdx)
		args = append(args, opts.Signer)
		argIdx++
	}
	if opts.ChainID != 0 {
		query += fmt.Sprintf(" AND chain_id = $%d", argIdx)
		args = append(args, opts.ChainID)
		argIdx++
	}

	query += " ORDER BY started_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
	}
	return query, args
}

// AppendStep adds one ledger row to a run. Amounts are stored as NUMERIC(78,0).
func (s *RunStore) AppendStep(ctx context.Context, step domain.StepRecord) error {
	const query = `
		INSERT INTO run_steps (run_id, entry, label, kind, token, spender, router, contract,
			amount, amount_b, tx_hash, block_number, gas_used, error, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11, $12, $13, $14, $15)`

	at := step.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if _, err := s.pool.Exec(ctx, query,
		step.RunID, step.Entry, step.Label, string(step.Kind),
		step.Token, step.Spender, step.Router, step.Contract,
		numericText(step.Amount), numericText(step.AmountB),
		step.TxHash, int64(step.BlockNumber), int64(step.GasUsed), step.Error, at,
	); err != nil {
		return fmt.Errorf("postgres: append step to run %s: %w", step.RunID, err)
	}
	return nil
}

// ListSteps returns the ledger of one run in insertion order.
func (s *RunStore) ListSteps(ctx context.Context, runID string) ([]domain.StepRecord, error) {
	const query = `
		SELECT run_id::text, entry, label, kind, token, spender, router, contract,
			amount::text, amount_b::text, tx_hash, block_number, gas_used, error, at
		FROM run_steps WHERE run_id = $1 ORDER BY id`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list steps of run %s: %w", runID, err)
	}
	defer rows.Close()

	var steps []domain.StepRecord
	for rows.Next() {
		var st domain.StepRecord
		var kind string
		var amount, amountB *string
		var block, gas int64
		if err := rows.Scan(&st.RunID, &st.Entry, &st.Label, &kind, &st.Token, &st.Spender, &st.Router, &st.Contract,
			&amount, &amountB, &st.TxHash, &block, &gas, &st.Error, &st.At); err != nil {
			return nil, fmt.Errorf("postgres: scan step: %w", err)
		}
		st.Kind = domain.StepKind(kind)
		st.BlockNumber = uint64(block)
		st.GasUsed = uint64(gas)
		st.Amount = parseNumeric(amount)
		st.AmountB = parseNumeric(amountB)
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list steps rows: %w", err)
	}
	return steps, nil
}

func numericText(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func parseNumeric(s *string) *big.Int {
	if s == nil {
		return nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil
	}
	return v
}
