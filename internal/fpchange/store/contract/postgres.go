package contract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"accai/internal/fpchange/faults"
	"accai/internal/fpchange/models"
	"accai/pkg/platform/sentinel"
	txcontext "accai/pkg/platform/tx"
)

// storeTarget names the store in faults.
const storeTarget = "contratos"

// PostgresStore persists contracts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed contract store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Save upserts a contract by contract number.
func (s *PostgresStore) Save(ctx context.Context, c models.Contract) error {
	if c.ContractNumber == "" {
		return fmt.Errorf("contract number is required: %w", sentinel.ErrInvalidInput)
	}
	query := `
		INSERT INTO contratos (numero_contrato, producto, plan_producto, nro_docum, tipo_docum, estado_contrato, id_agte)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (numero_contrato) DO UPDATE SET
			producto = EXCLUDED.producto,
			plan_producto = EXCLUDED.plan_producto,
			nro_docum = EXCLUDED.nro_docum,
			tipo_docum = EXCLUDED.tipo_docum,
			estado_contrato = EXCLUDED.estado_contrato,
			id_agte = EXCLUDED.id_agte,
			updated_at = now()
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		c.ContractNumber, c.Product, c.ProductPlan, c.DocumentNumber, c.DocumentType, c.Status, c.CurrentAgentID,
	)
	if err != nil {
		return fmt.Errorf("save contract: %w", err)
	}
	return nil
}

// FindByNumber returns the contract with the given number.
func (s *PostgresStore) FindByNumber(ctx context.Context, number string) (*models.Contract, error) {
	query := `
		SELECT id, numero_contrato, producto, plan_producto, nro_docum, tipo_docum, estado_contrato, id_agte
		FROM contratos
		WHERE numero_contrato = $1
	`
	var c models.Contract
	err := s.execer(ctx).QueryRowContext(ctx, query, number).Scan(
		&c.ID, &c.ContractNumber, &c.Product, &c.ProductPlan,
		&c.DocumentNumber, &c.DocumentType, &c.Status, &c.CurrentAgentID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contract %s: %w", number, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find contract: %w", err)
	}
	return &c, nil
}

// ApplyChanges loads every referenced contract in one locked read, applies
// the matching reassignments, and writes them back in one statement. It
// returns the changes that took effect.
// Failures come back as db.timeout or db.update_failed faults.
func (s *PostgresStore) ApplyChanges(ctx context.Context, changes []models.ChangeRequest) ([]models.ChangeRequest, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	var applied []models.ChangeRequest
	err := txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		out, err := s.applyChanges(ctx, tx, changes)
		applied = out
		return err
	})
	if err != nil {
		return nil, faults.FromStorage(err, storeTarget)
	}
	return applied, nil
}

func (s *PostgresStore) applyChanges(ctx context.Context, tx *sql.Tx, changes []models.ChangeRequest) ([]models.ChangeRequest, error) {
	loaded, err := s.lockContracts(ctx, tx, contractNumbers(changes))
	if err != nil {
		return nil, err
	}
	planned := planAgentChanges(loaded, changes)
	if len(planned) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(planned))
	agents := make([]string, len(planned))
	for i, p := range planned {
		ids[i] = p.contract.ID
		agents[i] = p.contract.CurrentAgentID
	}

	// Batch update using unnest for one round trip per product group
	query := `
		UPDATE contratos AS c
		SET id_agte = u.id_agte, updated_at = now()
		FROM unnest($1::bigint[], $2::text[]) AS u(id, id_agte)
		WHERE c.id = u.id
	`
	res, err := tx.ExecContext(ctx, query, pq.Array(ids), pq.Array(agents))
	if err != nil {
		return nil, fmt.Errorf("update contract agents: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if int(affected) != len(planned) {
		return nil, fmt.Errorf("updated %d of %d locked contracts", affected, len(planned))
	}
	return appliedChanges(planned), nil
}

func (s *PostgresStore) lockContracts(ctx context.Context, tx *sql.Tx, numbers []string) ([]models.Contract, error) {
	query := `
		SELECT id, numero_contrato, producto, plan_producto, nro_docum, tipo_docum, estado_contrato, id_agte
		FROM contratos
		WHERE numero_contrato = ANY($1)
		ORDER BY id
		FOR UPDATE
	`
	rows, err := tx.QueryContext(ctx, query, pq.Array(numbers))
	if err != nil {
		return nil, fmt.Errorf("load contracts: %w", err)
	}
	defer rows.Close()

	var out []models.Contract
	for rows.Next() {
		var c models.Contract
		if err := rows.Scan(
			&c.ID, &c.ContractNumber, &c.Product, &c.ProductPlan,
			&c.DocumentNumber, &c.DocumentType, &c.Status, &c.CurrentAgentID,
		); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return out, nil
}
