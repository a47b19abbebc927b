// seed puebla la base con una organización de demostración (3 facturas con
// líneas e impuestos, 2 gastos y un campo personalizado) para que una corrida
// local del exportador produzca artefactos.
//
// Uso: go run ./cmd/seed (configuración de conexión por variables de entorno).
package main

import (
	"context"

	"github.com/jhoicas/Exportador/internal/infrastructure/postgres"
	"github.com/jhoicas/Exportador/pkg/config"
	"github.com/jhoicas/Exportador/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.SeedDemo(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("seed de demostración")
	}
	log.Info().Msg("datos de demostración listos")
}
