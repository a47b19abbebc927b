package export

import (
	"context"

	"github.com/jhoicas/Exportador/internal/domain/entity"
)

// InvoiceBundle es el paquete de datos que recibe el renderizador: el
// registro completo de la unidad (con direcciones, líneas, impuestos y notas
// ya dentro), la referencia de marca resuelta una vez por organización y los
// campos personalizados cargados una vez por corrida.
type InvoiceBundle struct {
	Invoice      *entity.Invoice
	Organization *entity.Organization
	Logo         []byte // bytes del activo de marca; nil si no hay
	CustomFields []*entity.CustomField
}

// DocumentRenderer produce el artefacto de bytes de una unidad. Es función
// pura de sus entradas: la clave de plantilla ya viene resuelta por el
// orquestador (la regla de selección es lógica de negocio, no del render).
type DocumentRenderer interface {
	Render(ctx context.Context, templateKey string, bundle *InvoiceBundle) ([]byte, error)
}

// ExpenseSink es el destino tabular de una organización: escribe la fila de
// cabecera al abrirse y una fila por gasto. Close debe llamarse en todo
// camino de salida (adquisición con ámbito).
type ExpenseSink interface {
	WriteRow(e *entity.Expense) error
	Close() error
	// Ref describe el artefacto para el manifiesto (tamaño al momento de
	// la llamada; pedirlo después de Close).
	Ref() ArtifactRef
}

// ArtifactRef describe un artefacto emitido, para el progreso y el manifiesto.
type ArtifactRef struct {
	Kind   string // "invoice_pdf", "expenses_csv"
	SubKey string // nombre de archivo ya saneado dentro del namespace
	Size   int64
}

// Store es el almacén de artefactos: mapea (organización, tipo, subclave) a
// una ruta bajo la raíz de exportación, garantizando directorios existentes,
// subclaves saneadas y escrituras atómicas-para-un-escritor.
type Store interface {
	// EnsureNamespace resuelve (idempotente) el directorio de la
	// organización: "{ID}_{slug(nombre)}".
	EnsureNamespace(org *entity.Organization) (string, error)

	// WriteArtifact sanea subKey y escribe data; re-ejecutar la corrida
	// sobreescribe la misma ruta, nunca acumula.
	WriteArtifact(namespace, subKey string, data []byte) (ArtifactRef, error)

	// OpenExpenseSink crea (truncando) el CSV de gastos del namespace.
	OpenExpenseSink(namespace string) (ExpenseSink, error)

	// WriteManifest persiste el inventario de artefactos de la corrida
	// para el namespace.
	WriteManifest(namespace, runID string, artifacts []ArtifactRef) error

	// ReadBranding carga el activo de marca; (nil, nil) si path está vacío
	// o el activo no existe (la marca es opcional).
	ReadBranding(path string) ([]byte, error)
}
