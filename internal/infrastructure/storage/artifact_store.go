// Package storage implementa el almacén de artefactos sobre un sistema de
// archivos abstracto (afero): namespaces por organización, escrituras
// atómicas-para-un-escritor, el CSV de gastos y el manifiesto XML por corrida.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jhoicas/Exportador/internal/application/export"
	"github.com/jhoicas/Exportador/internal/domain"
	"github.com/jhoicas/Exportador/internal/domain/entity"
	"github.com/jhoicas/Exportador/pkg/slug"
)

var _ export.Store = (*FSStore)(nil)

// FSStore implementa export.Store bajo una raíz configurable. En producción
// recibe afero.NewOsFs(); los tests usan afero.NewMemMapFs().
type FSStore struct {
	fs   afero.Fs
	root string
}

// NewFSStore construye el almacén. No toca el disco hasta la primera escritura.
func NewFSStore(fs afero.Fs, root string) *FSStore {
	return &FSStore{fs: fs, root: root}
}

// EnsureNamespace crea (idempotente) el directorio de la organización:
// "{ID}_{slug(nombre)}". El prefijo numérico garantiza unicidad aunque dos
// organizaciones tengan nombres que coincidan tras el saneo. MkdirAll es
// seguro bajo llamadas concurrentes para el mismo namespace.
func (s *FSStore) EnsureNamespace(org *entity.Organization) (string, error) {
	ns := fmt.Sprintf("%d_%s", org.ID, slug.Make(org.Name))
	if err := s.fs.MkdirAll(filepath.Join(s.root, ns), 0o755); err != nil {
		return "", fmt.Errorf("crear namespace %s: %w", ns, err)
	}
	return ns, nil
}

// WriteArtifact sanea subKey (los números de factura son texto libre: sin
// saneo podrían crear subdirectorios o escapar del namespace) y escribe data
// truncando lo que hubiera. Escribe a un archivo temporal y renombra: para un
// solo escritor, suficiente atomicidad.
func (s *FSStore) WriteArtifact(namespace, subKey string, data []byte) (export.ArtifactRef, error) {
	name := slug.Filename(subKey)
	dst := filepath.Join(s.root, namespace, name)
	tmp := dst + ".tmp"

	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return export.ArtifactRef{}, fmt.Errorf("%w: %s: %w", domain.ErrArtifactWrite, name, err)
	}
	if err := s.fs.Rename(tmp, dst); err != nil {
		_ = s.fs.Remove(tmp)
		return export.ArtifactRef{}, fmt.Errorf("%w: %s: %w", domain.ErrArtifactWrite, name, err)
	}

	return export.ArtifactRef{
		Kind:   "invoice_pdf",
		SubKey: name,
		Size:   int64(len(data)),
	}, nil
}

// OpenExpenseSink crea (truncando) el CSV de gastos del namespace y escribe
// la fila de cabecera. Re-ejecutar la corrida reemplaza el archivo, nunca
// acumula filas de corridas anteriores.
func (s *FSStore) OpenExpenseSink(namespace string) (export.ExpenseSink, error) {
	path := filepath.Join(s.root, namespace, expenseSinkName)
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSinkOpen, path, err)
	}
	return newExpenseSink(f)
}

// ReadBranding carga el activo de marca de la organización. La marca es
// opcional: path vacío o archivo inexistente devuelven (nil, nil).
func (s *FSStore) ReadBranding(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	ok, err := afero.Exists(s.fs, path)
	if err != nil || !ok {
		return nil, nil
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("leer activo de marca %s: %w", path, err)
	}
	return data, nil
}
