package entity

import "time"

// Ámbitos de aplicación de los campos personalizados.
const (
	CustomFieldScopeItem    = "Item"
	CustomFieldScopeInvoice = "Invoice"
)

// CustomField es dato de referencia de toda la corrida: se carga UNA sola
// vez por ejecución y se comparte en modo lectura entre todas las unidades.
// Volver a consultarlo por factura sería una regresión de rendimiento grave.
type CustomField struct {
	ID            int64
	Scope         string // ver constantes CustomFieldScope*
	Label         string
	ValueTemplate string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
