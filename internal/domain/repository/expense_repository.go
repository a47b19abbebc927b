package repository

import (
	"context"

	"github.com/jhoicas/Exportador/internal/domain/entity"
)

// ExpenseCursor recorre los gastos de una organización en una sola pasada,
// en orden ascendente de ID, sosteniendo O(1) filas en memoria.
// Close es idempotente y debe llamarse en todo camino de salida.
type ExpenseCursor interface {
	// Next entrega el siguiente gasto. ok=false sin error señala fin de
	// la colección; un error envuelve domain.ErrSourceUnavailable.
	Next(ctx context.Context) (e *entity.Expense, ok bool, err error)
	Close()
}

// ExpenseRepository define el puerto de lectura para Expense.
type ExpenseRepository interface {
	// StreamByOrganization abre un cursor de una sola pasada sobre los
	// gastos de la organización, con la categoría ya resuelta.
	StreamByOrganization(ctx context.Context, orgID int64) (ExpenseCursor, error)
}
