package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Exportador/internal/domain"
	"github.com/jhoicas/Exportador/internal/domain/entity"
	"github.com/jhoicas/Exportador/internal/domain/repository"
)

var _ repository.ExpenseRepository = (*ExpenseRepo)(nil)

// ExpenseRepo implementación de ExpenseRepository (usable con pool o tx).
type ExpenseRepo struct {
	q Querier
}

// NewExpenseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewExpenseRepository(q Querier) *ExpenseRepo {
	return &ExpenseRepo{q: q}
}

// StreamByOrganization abre el cursor de una pasada: pgx entrega las filas a
// medida que llegan del servidor, así la memoria retenida es O(1) filas.
// La categoría viene resuelta con LEFT JOIN (NULL → nil → campo CSV vacío).
func (r *ExpenseRepo) StreamByOrganization(ctx context.Context, orgID int64) (repository.ExpenseCursor, error) {
	query := `
		SELECT e.id, e.organization_id, e.date, c.name, e.amount, COALESCE(e.notes, ''),
		       e.created_at, e.updated_at
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.organization_id = $1
		ORDER BY e.id`
	rows, err := r.q.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: stream de gastos: %w", domain.ErrSourceUnavailable, err)
	}
	return &expenseRows{rows: rows}, nil
}

var _ repository.ExpenseCursor = (*expenseRows)(nil)

// expenseRows adapta pgx.Rows al contrato del cursor de una pasada.
type expenseRows struct {
	rows pgx.Rows
}

func (c *expenseRows) Next(_ context.Context) (*entity.Expense, bool, error) {
	if c.rows == nil {
		return nil, false, nil
	}
	if !c.rows.Next() {
		err := c.rows.Err()
		c.Close()
		if err != nil {
			return nil, false, fmt.Errorf("%w: recorrer gastos: %w", domain.ErrSourceUnavailable, err)
		}
		return nil, false, nil
	}

	var e entity.Expense
	if err := c.rows.Scan(&e.ID, &e.OrganizationID, &e.Date, &e.Category, &e.Amount,
		&e.Notes, &e.CreatedAt, &e.UpdatedAt); err != nil {
		c.Close()
		return nil, false, fmt.Errorf("%w: scan gasto: %w", domain.ErrSourceUnavailable, err)
	}
	return &e, true, nil
}

// Close es idempotente; suelta la conexión de vuelta al pool.
func (c *expenseRows) Close() {
	if c.rows != nil {
		c.rows.Close()
		c.rows = nil
	}
}
