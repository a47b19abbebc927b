package repository

import (
	"context"

	"github.com/jhoicas/Exportador/internal/domain/entity"
)

// InvoiceRepository define el puerto de lectura para Invoice.
// Las facturas llegan con cliente, líneas e impuestos ya resueltos
// (join eager por ventana): el pipeline no hace consultas por unidad.
type InvoiceRepository interface {
	// ListByOrganizationAfter devuelve hasta limit facturas de la
	// organización con ID estrictamente mayor que afterID, ordenadas por
	// ID ascendente. Un slice vacío señala el fin de la colección.
	ListByOrganizationAfter(ctx context.Context, orgID, afterID int64, limit int) ([]*entity.Invoice, error)

	// CountAll cuenta las facturas de todas las organizaciones. Se invoca
	// una sola vez antes del bucle externo para fijar el total de progreso.
	CountAll(ctx context.Context) (int64, error)
}
