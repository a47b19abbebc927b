package export

import (
	"time"

	"github.com/jhoicas/Exportador/pkg/logger"
)

// ProgressSink recibe el progreso grueso de la corrida: una línea por unidad,
// una por organización y el resumen final. El total se fija una sola vez
// antes del bucle externo.
type ProgressSink interface {
	UnitDone(done, total int64, orgID int64, unit string)
	UnitFailed(orgID int64, unit string, err error)
	OrgDone(orgID int64, name string, invoices, expenses int64)
	RunSummary(done, failed, total int64, elapsed time.Duration)
}

// LogProgress es el sink por defecto: líneas estructuradas vía zerolog.
type LogProgress struct {
	log *logger.Logger
}

// NewLogProgress construye el sink sobre el logger de la aplicación.
func NewLogProgress(log *logger.Logger) *LogProgress {
	return &LogProgress{log: log}
}

func (p *LogProgress) UnitDone(done, total int64, orgID int64, unit string) {
	p.log.Debug().
		Int64("done", done).
		Int64("total", total).
		Int64("org_id", orgID).
		Str("unit", unit).
		Msg("unidad exportada")
}

func (p *LogProgress) UnitFailed(orgID int64, unit string, err error) {
	p.log.Warn().
		Err(err).
		Int64("org_id", orgID).
		Str("unit", unit).
		Msg("unidad fallida")
}

func (p *LogProgress) OrgDone(orgID int64, name string, invoices, expenses int64) {
	p.log.Info().
		Int64("org_id", orgID).
		Str("org", name).
		Int64("invoices", invoices).
		Int64("expenses", expenses).
		Msg("organización exportada")
}

func (p *LogProgress) RunSummary(done, failed, total int64, elapsed time.Duration) {
	p.log.Info().
		Int64("done", done).
		Int64("failed", failed).
		Int64("total", total).
		Dur("elapsed", elapsed).
		Msg("corrida terminada")
}
