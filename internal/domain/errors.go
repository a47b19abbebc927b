package domain

import "errors"

// Errores de dominio (sin dependencias externas).
//
// La política de propagación del pipeline se apoya en estos centinelas:
// los fallos por unidad (render, escritura) se aíslan y se registran; los
// fallos de colaboradores globales (fuente de organizaciones, conteo total)
// abortan la corrida completa.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrSourceUnavailable = errors.New("fuente de datos no disponible")
	ErrRenderFailure     = errors.New("fallo al renderizar el documento")
	ErrSinkOpen          = errors.New("no se pudo abrir el destino tabular")
	ErrArtifactWrite     = errors.New("fallo al escribir el artefacto")
)
