package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Exportador/internal/domain"
	"github.com/jhoicas/Exportador/internal/domain/entity"
	"github.com/jhoicas/Exportador/internal/domain/repository"
)

var _ repository.CustomFieldRepository = (*CustomFieldRepo)(nil)

// CustomFieldRepo implementación de CustomFieldRepository (usable con pool o tx).
type CustomFieldRepo struct {
	q Querier
}

// NewCustomFieldRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomFieldRepository(q Querier) *CustomFieldRepo {
	return &CustomFieldRepo{q: q}
}

// ListByScope carga los campos personalizados del ámbito. El orquestador lo
// invoca una sola vez por corrida: es dato de referencia compartido.
func (r *CustomFieldRepo) ListByScope(ctx context.Context, scope string) ([]*entity.CustomField, error) {
	query := `
		SELECT id, scope, label, value_template, created_at, updated_at
		FROM custom_fields
		WHERE scope = $1
		ORDER BY id`
	rows, err := r.q.Query(ctx, query, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: listar campos personalizados: %w", domain.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var out []*entity.CustomField
	for rows.Next() {
		var f entity.CustomField
		if err := rows.Scan(&f.ID, &f.Scope, &f.Label, &f.ValueTemplate, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan campo personalizado: %w", domain.ErrSourceUnavailable, err)
		}
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: recorrer campos personalizados: %w", domain.ErrSourceUnavailable, err)
	}
	return out, nil
}
