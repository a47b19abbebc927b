package storage_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Exportador/internal/domain/entity"
	"github.com/jhoicas/Exportador/internal/infrastructure/storage"
)

func newMemStore(t *testing.T) (*storage.FSStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return storage.NewFSStore(fs, "exports"), fs
}

func TestEnsureNamespace_NombreConSimbolos(t *testing.T) {
	store, fs := newMemStore(t)

	org := &entity.Organization{ID: 42, Name: "Acme & Co. / Skis!"}
	ns, err := store.EnsureNamespace(org)
	require.NoError(t, err)

	// Prefijo numérico + solo minúsculas alfanuméricas y guiones.
	assert.Equal(t, "42_acme-co-skis", ns)

	ok, err := afero.DirExists(fs, filepath.Join("exports", ns))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnsureNamespace_Idempotente(t *testing.T) {
	store, _ := newMemStore(t)
	org := &entity.Organization{ID: 7, Name: "Vientos del Sur"}

	ns1, err := store.EnsureNamespace(org)
	require.NoError(t, err)
	ns2, err := store.EnsureNamespace(org)
	require.NoError(t, err)
	assert.Equal(t, ns1, ns2)
}

func TestWriteArtifact_SubclaveInsegura(t *testing.T) {
	store, fs := newMemStore(t)
	org := &entity.Organization{ID: 1, Name: "Acme"}
	ns, err := store.EnsureNamespace(org)
	require.NoError(t, err)

	// Un número de factura con separador de ruta no debe crear un
	// subdirectorio ni escapar del namespace.
	ref, err := store.WriteArtifact(ns, "invoice_INV/001.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.NotContains(t, ref.SubKey, "/")

	entries, err := afero.ReadDir(fs, filepath.Join("exports", ns))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, e.IsDir(), "no debe haber subdirectorios: %s", e.Name())
	}
}

func TestWriteArtifact_Traversal(t *testing.T) {
	store, fs := newMemStore(t)
	org := &entity.Organization{ID: 1, Name: "Acme"}
	ns, err := store.EnsureNamespace(org)
	require.NoError(t, err)

	ref, err := store.WriteArtifact(ns, "../../fuga.pdf", []byte("x"))
	require.NoError(t, err)
	assert.False(t, strings.Contains(ref.SubKey, ".."))

	// Nada fuera de exports/{ns}/.
	ok, _ := afero.Exists(fs, "fuga.pdf")
	assert.False(t, ok)
	ok, _ = afero.Exists(fs, filepath.Join("exports", "fuga.pdf"))
	assert.False(t, ok)
}

func TestWriteArtifact_SobreescribeNoAcumula(t *testing.T) {
	store, fs := newMemStore(t)
	org := &entity.Organization{ID: 3, Name: "Acme"}
	ns, err := store.EnsureNamespace(org)
	require.NoError(t, err)

	_, err = store.WriteArtifact(ns, "invoice_A-1.pdf", []byte("primera corrida"))
	require.NoError(t, err)
	ref, err := store.WriteArtifact(ns, "invoice_A-1.pdf", []byte("segunda"))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, filepath.Join("exports", ns, ref.SubKey))
	require.NoError(t, err)
	assert.Equal(t, "segunda", string(data))

	// Sin temporales huérfanos.
	entries, err := afero.ReadDir(fs, filepath.Join("exports", ns))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadBranding_Opcional(t *testing.T) {
	store, fs := newMemStore(t)

	data, err := store.ReadBranding("")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = store.ReadBranding("no/existe.png")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, afero.WriteFile(fs, "logos/acme.png", []byte{0x89, 'P', 'N', 'G'}, 0o644))
	data, err = store.ReadBranding("logos/acme.png")
	require.NoError(t, err)
	assert.Len(t, data, 4)
}
