package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Exportador/internal/application/export"
	"github.com/jhoicas/Exportador/internal/domain/entity"
)

func TestWriteManifest(t *testing.T) {
	store, fs := newMemStore(t)
	ns, err := store.EnsureNamespace(&entity.Organization{ID: 42, Name: "Acme"})
	require.NoError(t, err)

	arts := []export.ArtifactRef{
		{Kind: "invoice_pdf", SubKey: "invoice_INV-001.pdf", Size: 1024},
		{Kind: "expenses_csv", SubKey: "expenses.csv", Size: 88},
	}
	require.NoError(t, store.WriteManifest(ns, "corrida-1", arts))

	data, err := afero.ReadFile(fs, filepath.Join("exports", ns, "manifest.xml"))
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))

	root := doc.SelectElement("manifest")
	require.NotNil(t, root)
	assert.Equal(t, "corrida-1", root.SelectAttrValue("run", ""))
	assert.Equal(t, ns, root.SelectAttrValue("namespace", ""))

	els := root.SelectElements("artifact")
	require.Len(t, els, 2)
	assert.Equal(t, "invoice_pdf", els[0].SelectAttrValue("kind", ""))
	assert.Equal(t, "invoice_INV-001.pdf", els[0].Text())
	assert.Equal(t, "88", els[1].SelectAttrValue("size", ""))
}
