package entity

import "time"

// Organization representa una organización dueña de facturas y gastos.
// Es de solo lectura para el pipeline de exportación: el ID es numérico,
// estable y ordenable (se usa como clave de paginación keyset y como
// prefijo del namespace de salida).
type Organization struct {
	ID        int64
	Name      string
	LogoPath  string // referencia al activo de marca; vacío si no tiene
	CreatedAt time.Time
	UpdatedAt time.Time
}
