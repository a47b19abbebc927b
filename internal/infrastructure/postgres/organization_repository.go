package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Exportador/internal/domain"
	"github.com/jhoicas/Exportador/internal/domain/entity"
	"github.com/jhoicas/Exportador/internal/domain/repository"
)

var _ repository.OrganizationRepository = (*OrganizationRepo)(nil)

// OrganizationRepo implementación de OrganizationRepository (usable con pool o tx).
type OrganizationRepo struct {
	q Querier
}

// NewOrganizationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrganizationRepository(q Querier) *OrganizationRepo {
	return &OrganizationRepo{q: q}
}

// ListAfter trae la siguiente ventana de organizaciones por keyset: WHERE id
// mayor que el último visto, nunca OFFSET (estable ante inserciones y barato
// en tablas grandes).
func (r *OrganizationRepo) ListAfter(ctx context.Context, afterID int64, limit int) ([]*entity.Organization, error) {
	query := `
		SELECT id, name, COALESCE(logo_path, ''), created_at, updated_at
		FROM organizations
		WHERE id > $1
		ORDER BY id
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listar organizaciones: %w", domain.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	out := make([]*entity.Organization, 0, limit)
	for rows.Next() {
		var o entity.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.LogoPath, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan organización: %w", domain.ErrSourceUnavailable, err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: recorrer organizaciones: %w", domain.ErrSourceUnavailable, err)
	}
	return out, nil
}
