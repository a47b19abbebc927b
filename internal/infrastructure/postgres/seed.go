package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Schema mínimo que el pipeline consume. IDs BIGSERIAL: la clave keyset es
// numérica, estable y ordenable.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		logo_path TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		tax_id TEXT NOT NULL DEFAULT '',
		email TEXT,
		phone TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		customer_id BIGINT NOT NULL REFERENCES customers(id),
		number TEXT NOT NULL,
		date DATE NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		net_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		tax_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		grand_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		billing_line1 TEXT NOT NULL DEFAULT '', billing_line2 TEXT NOT NULL DEFAULT '',
		billing_city TEXT NOT NULL DEFAULT '', billing_zone TEXT NOT NULL DEFAULT '',
		billing_postal_code TEXT NOT NULL DEFAULT '', billing_country TEXT NOT NULL DEFAULT '',
		shipping_line1 TEXT NOT NULL DEFAULT '', shipping_line2 TEXT NOT NULL DEFAULT '',
		shipping_city TEXT NOT NULL DEFAULT '', shipping_zone TEXT NOT NULL DEFAULT '',
		shipping_postal_code TEXT NOT NULL DEFAULT '', shipping_country TEXT NOT NULL DEFAULT '',
		company_line1 TEXT NOT NULL DEFAULT '', company_line2 TEXT NOT NULL DEFAULT '',
		company_city TEXT NOT NULL DEFAULT '', company_zone TEXT NOT NULL DEFAULT '',
		company_postal_code TEXT NOT NULL DEFAULT '', company_country TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (organization_id, number)
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_items (
		id BIGSERIAL PRIMARY KEY,
		invoice_id BIGINT NOT NULL REFERENCES invoices(id),
		description TEXT NOT NULL,
		quantity NUMERIC(14,2) NOT NULL,
		unit_price NUMERIC(14,2) NOT NULL,
		amount NUMERIC(14,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_taxes (
		id BIGSERIAL PRIMARY KEY,
		invoice_id BIGINT NOT NULL REFERENCES invoices(id),
		name TEXT NOT NULL,
		rate NUMERIC(6,2) NOT NULL,
		amount NUMERIC(14,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		category_id BIGINT REFERENCES categories(id),
		date DATE NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS custom_fields (
		id BIGSERIAL PRIMARY KEY,
		scope TEXT NOT NULL,
		label TEXT NOT NULL,
		value_template TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_org_id ON invoices (organization_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_org_id ON expenses (organization_id, id)`,
}

// EnsureSchema crea las tablas si no existen.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schemaStatements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("crear schema: %w", err)
		}
	}
	return nil
}

// SeedDemo puebla una organización de ejemplo con facturas, gastos y campos
// personalizados, para que una corrida local produzca artefactos. Tolera
// re-ejecuciones: los duplicados por número de factura se omiten.
func SeedDemo(ctx context.Context, q Querier) error {
	if err := EnsureSchema(ctx, q); err != nil {
		return err
	}

	var orgID int64
	err := q.QueryRow(ctx,
		`INSERT INTO organizations (name, logo_path) VALUES ($1, $2) RETURNING id`,
		"Acme & Co. / Skis!", "").Scan(&orgID)
	if err != nil {
		return fmt.Errorf("seed organización: %w", err)
	}

	var customerID int64
	err = q.QueryRow(ctx,
		`INSERT INTO customers (name, tax_id, email) VALUES ($1, $2, $3) RETURNING id`,
		"Cliente Demo", "900123456", "demo@cliente.co").Scan(&customerID)
	if err != nil {
		return fmt.Errorf("seed cliente: %w", err)
	}

	var catID int64
	err = q.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, "Viajes").Scan(&catID)
	if err != nil {
		return fmt.Errorf("seed categoría: %w", err)
	}

	for i := 1; i <= 3; i++ {
		number := fmt.Sprintf("INV-%03d", i)
		net := decimal.NewFromInt(int64(100 * i))
		tax := net.Mul(decimal.RequireFromString("0.19")).Round(2)

		var invID int64
		err := q.QueryRow(ctx, `
			INSERT INTO invoices (organization_id, customer_id, number, date, notes,
			                      net_total, tax_total, grand_total,
			                      billing_line1, billing_city, billing_country,
			                      company_line1, company_city, company_country)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			        'Calle 1 # 2-3', 'Bogotá', 'Colombia',
			        'Av. Emisor 45', 'Medellín', 'Colombia')
			RETURNING id`,
			orgID, customerID, number,
			time.Date(2025, time.Month(i), 10, 0, 0, 0, 0, time.UTC),
			"pago a 30 días", net, tax, net.Add(tax),
		).Scan(&invID)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("seed factura %s: %w", number, err)
		}

		_, err = q.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5)`,
			invID, fmt.Sprintf("Servicio %d", i), decimal.NewFromInt(1), net, net)
		if err != nil {
			return fmt.Errorf("seed línea de factura %s: %w", number, err)
		}

		_, err = q.Exec(ctx, `
			INSERT INTO invoice_taxes (invoice_id, name, rate, amount)
			VALUES ($1, 'IVA', 19, $2)`, invID, tax)
		if err != nil {
			return fmt.Errorf("seed impuesto de factura %s: %w", number, err)
		}
	}

	_, err = q.Exec(ctx, `
		INSERT INTO expenses (organization_id, category_id, date, amount, notes)
		VALUES ($1, $2, '2025-03-01', 120.50, 'tiquetes'),
		       ($1, NULL, '2025-03-15', 19.99, '')`, orgID, catID)
	if err != nil {
		return fmt.Errorf("seed gastos: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO custom_fields (scope, label, value_template)
		VALUES ('Item', 'Garantía', '12 meses')`)
	if err != nil {
		return fmt.Errorf("seed campos personalizados: %w", err)
	}
	return nil
}

// SQLSTATE de violación de unicidad; los duplicados del seed se omiten.
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
