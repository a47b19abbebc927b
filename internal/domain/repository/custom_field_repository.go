package repository

import (
	"context"

	"github.com/jhoicas/Exportador/internal/domain/entity"
)

// CustomFieldRepository define el puerto de lectura para los campos
// personalizados (dato de referencia de toda la corrida).
type CustomFieldRepository interface {
	// ListByScope devuelve los campos cuyo ámbito coincide con scope
	// (ver entity.CustomFieldScope*). Se invoca exactamente una vez por
	// corrida; el resultado se comparte en modo lectura.
	ListByScope(ctx context.Context, scope string) ([]*entity.CustomField, error)
}
