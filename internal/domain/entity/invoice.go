package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice representa la cabecera de una factura con sus colecciones anidadas
// ya resueltas (cliente, líneas, impuestos y bloques de dirección). La fuente
// la entrega con joins eager: el pipeline nunca vuelve a consultar por línea.
// Inmutable durante la exportación.
type Invoice struct {
	ID             int64
	OrganizationID int64
	Number         string // legible por humanos; texto libre, sanear antes de usarlo en rutas
	Date           time.Time
	Customer       Customer
	Items          []LineItem
	Taxes          []TaxLine
	Notes          string
	NetTotal       decimal.Decimal
	TaxTotal       decimal.Decimal
	GrandTotal     decimal.Decimal

	// Bloques de dirección calculados por la fuente (ya formateados).
	BillingAddress  Address
	ShippingAddress Address
	CompanyAddress  Address

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem representa una línea de detalle de una factura.
type LineItem struct {
	ID          int64
	InvoiceID   int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// TaxLine representa un impuesto aplicado a una factura.
type TaxLine struct {
	ID        int64
	InvoiceID int64
	Name      string
	Rate      decimal.Decimal // porcentaje, ej. 19 para 19%
	Amount    decimal.Decimal
}
