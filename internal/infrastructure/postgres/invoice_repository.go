package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Exportador/internal/domain"
	"github.com/jhoicas/Exportador/internal/domain/entity"
	"github.com/jhoicas/Exportador/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Cada ventana se entrega con cliente, direcciones, líneas e impuestos ya
// resueltos: una consulta de cabeceras y dos con ANY(ids) por ventana, en
// lugar de N+1 por factura.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// CountAll cuenta las facturas de todas las organizaciones (total de progreso).
func (r *InvoiceRepo) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: contar facturas: %w", domain.ErrSourceUnavailable, err)
	}
	return n, nil
}

// ListByOrganizationAfter trae la siguiente ventana de facturas por keyset.
func (r *InvoiceRepo) ListByOrganizationAfter(ctx context.Context, orgID, afterID int64, limit int) ([]*entity.Invoice, error) {
	query := `
		SELECT i.id, i.organization_id, i.number, i.date, i.notes,
		       i.net_total, i.tax_total, i.grand_total,
		       i.billing_line1, i.billing_line2, i.billing_city, i.billing_zone, i.billing_postal_code, i.billing_country,
		       i.shipping_line1, i.shipping_line2, i.shipping_city, i.shipping_zone, i.shipping_postal_code, i.shipping_country,
		       i.company_line1, i.company_line2, i.company_city, i.company_zone, i.company_postal_code, i.company_country,
		       i.created_at, i.updated_at,
		       c.id, c.name, c.tax_id, COALESCE(c.email, ''), COALESCE(c.phone, '')
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.organization_id = $1 AND i.id > $2
		ORDER BY i.id
		LIMIT $3`
	rows, err := r.q.Query(ctx, query, orgID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listar facturas: %w", domain.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	out := make([]*entity.Invoice, 0, limit)
	ids := make([]int64, 0, limit)
	for rows.Next() {
		var inv entity.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.OrganizationID, &inv.Number, &inv.Date, &inv.Notes,
			&inv.NetTotal, &inv.TaxTotal, &inv.GrandTotal,
			&inv.BillingAddress.Line1, &inv.BillingAddress.Line2, &inv.BillingAddress.City,
			&inv.BillingAddress.Zone, &inv.BillingAddress.PostalCode, &inv.BillingAddress.Country,
			&inv.ShippingAddress.Line1, &inv.ShippingAddress.Line2, &inv.ShippingAddress.City,
			&inv.ShippingAddress.Zone, &inv.ShippingAddress.PostalCode, &inv.ShippingAddress.Country,
			&inv.CompanyAddress.Line1, &inv.CompanyAddress.Line2, &inv.CompanyAddress.City,
			&inv.CompanyAddress.Zone, &inv.CompanyAddress.PostalCode, &inv.CompanyAddress.Country,
			&inv.CreatedAt, &inv.UpdatedAt,
			&inv.Customer.ID, &inv.Customer.Name, &inv.Customer.TaxID,
			&inv.Customer.Email, &inv.Customer.Phone,
		); err != nil {
			return nil, fmt.Errorf("%w: scan factura: %w", domain.ErrSourceUnavailable, err)
		}
		out = append(out, &inv)
		ids = append(ids, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: recorrer facturas: %w", domain.ErrSourceUnavailable, err)
	}
	if len(out) == 0 {
		return out, nil
	}

	if err := r.attachItems(ctx, out, ids); err != nil {
		return nil, err
	}
	if err := r.attachTaxes(ctx, out, ids); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *InvoiceRepo) attachItems(ctx context.Context, invoices []*entity.Invoice, ids []int64) error {
	query := `
		SELECT id, invoice_id, description, quantity, unit_price, amount
		FROM invoice_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, id`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("%w: listar líneas: %w", domain.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	byID := indexByID(invoices)
	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return fmt.Errorf("%w: scan línea: %w", domain.ErrSourceUnavailable, err)
		}
		if inv, ok := byID[it.InvoiceID]; ok {
			inv.Items = append(inv.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: recorrer líneas: %w", domain.ErrSourceUnavailable, err)
	}
	return nil
}

func (r *InvoiceRepo) attachTaxes(ctx context.Context, invoices []*entity.Invoice, ids []int64) error {
	query := `
		SELECT id, invoice_id, name, rate, amount
		FROM invoice_taxes
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, id`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("%w: listar impuestos: %w", domain.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	byID := indexByID(invoices)
	for rows.Next() {
		var tx entity.TaxLine
		if err := rows.Scan(&tx.ID, &tx.InvoiceID, &tx.Name, &tx.Rate, &tx.Amount); err != nil {
			return fmt.Errorf("%w: scan impuesto: %w", domain.ErrSourceUnavailable, err)
		}
		if inv, ok := byID[tx.InvoiceID]; ok {
			inv.Taxes = append(inv.Taxes, tx)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: recorrer impuestos: %w", domain.ErrSourceUnavailable, err)
	}
	return nil
}

func indexByID(invoices []*entity.Invoice) map[int64]*entity.Invoice {
	m := make(map[int64]*entity.Invoice, len(invoices))
	for _, inv := range invoices {
		m[inv.ID] = inv
	}
	return m
}
