package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense representa un gasto registrado por una organización.
// Category es opcional (nil = sin categoría) y se serializa como campo
// vacío en el CSV de salida.
type Expense struct {
	ID             int64
	OrganizationID int64
	Date           time.Time
	Category       *string
	Amount         decimal.Decimal
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
