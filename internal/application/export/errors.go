package export

import "fmt"

// UnitError marca el fallo de una sola unidad (una factura o un gasto) con
// el identificador de su dueño, para que el orquestador pueda registrar y
// continuar, o abortar, según la política configurada. Nunca contamina la
// salida de otras unidades.
type UnitError struct {
	OrgID int64
	Unit  string // ej. "invoice INV-001", "expenses"
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("organización %d, unidad %s: %v", e.OrgID, e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
