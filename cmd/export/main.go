// export corre el pipeline de exportación por lotes: un documento PDF por
// factura y un CSV de gastos por organización, bajo EXPORT_ROOT.
//
// Uso: export (sin argumentos; configuración por variables de entorno o .env).
// Sale con 0 aunque haya unidades fallidas (quedan en el resumen); sale con
// código distinto de cero solo ante condiciones fatales: configuración
// inválida, base de datos inaccesible, fuente de primer nivel caída o
// política de render "abort" disparada.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/jhoicas/Exportador/internal/application/export"
	infrapdf "github.com/jhoicas/Exportador/internal/infrastructure/pdf"
	"github.com/jhoicas/Exportador/internal/infrastructure/postgres"
	"github.com/jhoicas/Exportador/internal/infrastructure/storage"
	"github.com/jhoicas/Exportador/pkg/config"
	"github.com/jhoicas/Exportador/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("export_root", cfg.Export.Root).
		Msg("iniciando exportador")

	// Cancelación cooperativa: Ctrl-C o SIGTERM cierran ordenadamente
	// (el orquestador revisa el contexto en cada lote y cada unidad).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	orgRepo := postgres.NewOrganizationRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	expenseRepo := postgres.NewExpenseRepository(pool)
	fieldRepo := postgres.NewCustomFieldRepository(pool)

	renderer := infrapdf.NewMarotoRenderer()
	store := storage.NewFSStore(afero.NewOsFs(), cfg.Export.Root)

	orchestrator := export.NewOrchestrator(
		orgRepo, invoiceRepo, expenseRepo, fieldRepo,
		renderer, store, cfg.Export, log,
	)

	report, err := orchestrator.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("corrida abortada")
	}

	log.Info().
		Str("run_id", report.RunID).
		Int64("done", report.Done).
		Int64("failed", report.Failed).
		Int64("total", report.Total).
		Dur("elapsed", report.Elapsed).
		Msg("exportación completa")
}
