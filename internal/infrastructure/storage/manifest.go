package storage

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/spf13/afero"

	"github.com/jhoicas/Exportador/internal/application/export"
)

const manifestName = "manifest.xml"

// WriteManifest persiste el inventario de artefactos del namespace para la
// corrida: qué se emitió, con qué subclave y de qué tamaño. Se sobreescribe
// en cada corrida, igual que los artefactos que describe.
func (s *FSStore) WriteManifest(namespace, runID string, artifacts []export.ArtifactRef) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("manifest")
	root.CreateAttr("run", runID)
	root.CreateAttr("namespace", namespace)
	root.CreateAttr("generated", time.Now().UTC().Format(time.RFC3339))

	for _, a := range artifacts {
		el := root.CreateElement("artifact")
		el.CreateAttr("kind", a.Kind)
		el.CreateAttr("size", strconv.FormatInt(a.Size, 10))
		el.SetText(a.SubKey)
	}

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializar manifiesto: %w", err)
	}

	path := filepath.Join(s.root, namespace, manifestName)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("escribir manifiesto %s: %w", path, err)
	}
	return nil
}
