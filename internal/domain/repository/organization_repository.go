package repository

import (
	"context"

	"github.com/jhoicas/Exportador/internal/domain/entity"
)

// OrganizationRepository define el puerto de lectura para Organization (DIP).
// La implementación vive en infrastructure.
type OrganizationRepository interface {
	// ListAfter devuelve hasta limit organizaciones con ID estrictamente
	// mayor que afterID, ordenadas por ID ascendente (paginación keyset,
	// nunca OFFSET). Un slice vacío señala el fin de la colección.
	ListAfter(ctx context.Context, afterID int64, limit int) ([]*entity.Organization, error)
}
