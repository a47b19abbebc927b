// Package export implementa el pipeline de exportación por lotes con memoria
// acotada: recorre las organizaciones en lotes de tamaño fijo, materializa un
// documento por factura y un CSV de gastos por organización, sin cargar nunca
// el conjunto completo en memoria.
//
// Flujo de control:
//
//	bucle externo (organizaciones, keyset por ID, tamaño ChunkSize)
//	  └─ por organización: namespace → plantilla → marca
//	       ├─ bucle de facturas (WindowCursor, tamaño WindowSize) → render → artefacto
//	       └─ bucle de gastos (cursor de una pasada) → filas CSV
//	  └─ hint de reclamo de memoria entre lotes
package export

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Exportador/internal/domain"
	"github.com/jhoicas/Exportador/internal/domain/entity"
	"github.com/jhoicas/Exportador/internal/domain/repository"
	"github.com/jhoicas/Exportador/pkg/config"
	"github.com/jhoicas/Exportador/pkg/logger"
)

// Orchestrator dirige la corrida completa. Los fallos por unidad se registran
// y se aíslan; solo abortan la corrida los colaboradores globales (fuente de
// organizaciones, conteo total, referencia) o la política de render "abort".
type Orchestrator struct {
	orgs     repository.OrganizationRepository
	invoices repository.InvoiceRepository
	expenses repository.ExpenseRepository
	fields   repository.CustomFieldRepository
	renderer DocumentRenderer
	store    Store
	progress ProgressSink
	cfg      config.ExportConfig
	log      *logger.Logger

	// reclaim es el hint de reclamo de memoria entre lotes: acota el pico
	// de las asignaciones transitorias por chunk. Es un hint, no una
	// garantía; inyectable para poder contarlo en tests.
	reclaim func()

	total  int64
	done   atomic.Int64
	failed atomic.Int64
}

// Option ajusta el orquestador al construirlo.
type Option func(*Orchestrator)

// WithReclaimHint reemplaza el hint de reclamo entre lotes.
func WithReclaimHint(fn func()) Option {
	return func(o *Orchestrator) { o.reclaim = fn }
}

// WithProgress reemplaza el sink de progreso por defecto.
func WithProgress(p ProgressSink) Option {
	return func(o *Orchestrator) { o.progress = p }
}

// NewOrchestrator construye el caso de uso inyectando todas sus dependencias.
func NewOrchestrator(
	orgs repository.OrganizationRepository,
	invoices repository.InvoiceRepository,
	expenses repository.ExpenseRepository,
	fields repository.CustomFieldRepository,
	renderer DocumentRenderer,
	store Store,
	cfg config.ExportConfig,
	log *logger.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		orgs:     orgs,
		invoices: invoices,
		expenses: expenses,
		fields:   fields,
		renderer: renderer,
		store:    store,
		cfg:      cfg,
		log:      log,
		reclaim:  runtime.GC,
	}
	o.progress = NewLogProgress(log)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunReport resume la corrida: unidades exportadas, fallos y el total fijado
// antes del bucle externo. Failed cuenta tanto unidades fallidas (render,
// escritura) como etapas interrumpidas (cursor caído, sink que no abre), así
// nunca queda en cero cuando done < total.
type RunReport struct {
	RunID   string
	Total   int64
	Done    int64
	Failed  int64
	Elapsed time.Duration
}

// Run ejecuta la exportación completa. Devuelve error solo ante condiciones
// fatales; los fallos por unidad quedan en el reporte y en los logs.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	runID := uuid.New().String()
	log := o.log.Sub("run_id", runID)
	start := time.Now()

	// ── 1. Total de progreso: una sola consulta antes del bucle externo ──
	total, err := o.invoices.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: conteo total de facturas: %w", domain.ErrSourceUnavailable, err)
	}
	o.total = total

	// ── 2. Dato de referencia: UNA carga por corrida, compartida en
	//       lectura por todas las unidades y todos los workers ───────────
	fields, err := o.fields.ListByScope(ctx, entity.CustomFieldScopeItem)
	if err != nil {
		return nil, fmt.Errorf("%w: campos personalizados: %w", domain.ErrSourceUnavailable, err)
	}

	log.Info().
		Int64("total_invoices", total).
		Int("chunk_size", o.cfg.ChunkSize).
		Int("window_size", o.cfg.WindowSize).
		Int("workers", o.cfg.Workers).
		Str("render_policy", o.cfg.RenderPolicy).
		Msg("iniciando exportación")

	// ── 3. Bucle externo: organizaciones por lotes (keyset) ──────────────
	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := fetchWithRetry(ctx, func(ctx context.Context) ([]*entity.Organization, error) {
			return o.orgs.ListAfter(ctx, after, o.cfg.ChunkSize)
		})
		if err != nil {
			// La fuente de primer nivel no responde: condición fatal.
			return nil, fmt.Errorf("%w: organizaciones tras id %d: %w",
				domain.ErrSourceUnavailable, after, err)
		}
		if len(chunk) == 0 {
			break
		}

		if err := o.processChunk(ctx, log, runID, chunk, fields); err != nil {
			return nil, err
		}

		after = chunk[len(chunk)-1].ID
		o.reclaim()

		if len(chunk) < o.cfg.ChunkSize {
			break
		}
	}

	report := &RunReport{
		RunID:   runID,
		Total:   o.total,
		Done:    o.done.Load(),
		Failed:  o.failed.Load(),
		Elapsed: time.Since(start),
	}
	o.progress.RunSummary(report.Done, report.Failed, report.Total, report.Elapsed)
	return report, nil
}

// processChunk exporta las organizaciones de un lote, en secuencia o con un
// pool acotado de workers. El aislamiento por organización se sostiene porque
// cada una escribe solo bajo su propio namespace.
func (o *Orchestrator) processChunk(
	ctx context.Context,
	log *logger.Logger,
	runID string,
	chunk []*entity.Organization,
	fields []*entity.CustomField,
) error {
	if o.cfg.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.Workers)
		for _, org := range chunk {
			g.Go(func() error {
				return o.exportOrganization(gctx, log, runID, org, fields)
			})
		}
		return g.Wait()
	}

	for _, org := range chunk {
		if err := o.exportOrganization(ctx, log, runID, org, fields); err != nil {
			return err
		}
	}
	return nil
}

// exportOrganization corre las dos etapas intermedias de una organización.
// Facturas y gastos son dominios de fallo independientes: el fallo de una
// etapa no impide la otra. Devuelve error solo ante cancelación o política
// de render "abort".
func (o *Orchestrator) exportOrganization(
	ctx context.Context,
	log *logger.Logger,
	runID string,
	org *entity.Organization,
	fields []*entity.CustomField,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	olog := log.SubInt64("org_id", org.ID).Sub("org", org.Name)

	ns, err := o.store.EnsureNamespace(org)
	if err != nil {
		o.failed.Add(1)
		o.progress.UnitFailed(org.ID, "namespace", err)
		olog.Error().Err(err).Msg("no se pudo crear el namespace; organización omitida")
		return nil
	}

	// Resueltos una vez por organización, no por unidad.
	tpl := o.cfg.TemplateFor(org.ID)
	logo, err := o.store.ReadBranding(org.LogoPath)
	if err != nil {
		olog.Warn().Err(err).Msg("activo de marca ilegible; se exporta sin logo")
	}

	invCount, artifacts, err := o.exportInvoices(ctx, olog, org, ns, tpl, logo, fields)
	if err != nil {
		return err
	}

	expCount, expArtifacts, err := o.exportExpenses(ctx, olog, org, ns)
	if err != nil {
		return err
	}
	artifacts = append(artifacts, expArtifacts...)

	if err := o.store.WriteManifest(ns, runID, artifacts); err != nil {
		olog.Warn().Err(err).Msg("manifiesto no escrito")
	}

	o.progress.OrgDone(org.ID, org.Name, invCount, expCount)
	return nil
}

// exportInvoices renderiza y persiste un documento por factura, avanzando el
// contador de progreso exactamente una vez por unidad exitosa.
func (o *Orchestrator) exportInvoices(
	ctx context.Context,
	olog *logger.Logger,
	org *entity.Organization,
	ns, tpl string,
	logo []byte,
	fields []*entity.CustomField,
) (int64, []ArtifactRef, error) {
	cur := NewWindowCursor(
		func(ctx context.Context, after int64, limit int) ([]*entity.Invoice, error) {
			return o.invoices.ListByOrganizationAfter(ctx, org.ID, after, limit)
		},
		func(inv *entity.Invoice) int64 { return inv.ID },
		o.cfg.WindowSize,
	)
	defer cur.Close()

	var count int64
	var artifacts []ArtifactRef
	for {
		if err := ctx.Err(); err != nil {
			return count, artifacts, err
		}
		inv, ok, err := cur.Next(ctx)
		if err != nil {
			// Sin rollback: la salida parcial ya emitida se conserva y
			// el bucle de gastos de esta organización corre igual.
			o.failed.Add(1)
			o.progress.UnitFailed(org.ID, "invoices", err)
			olog.Error().Err(err).Msg("cursor de facturas interrumpido; salida parcial conservada")
			return count, artifacts, nil
		}
		if !ok {
			break
		}

		unit := "invoice " + inv.Number
		bundle := &InvoiceBundle{
			Invoice:      inv,
			Organization: org,
			Logo:         logo,
			CustomFields: fields,
		}

		data, err := o.renderer.Render(ctx, tpl, bundle)
		if err != nil {
			uerr := &UnitError{OrgID: org.ID, Unit: unit,
				Err: fmt.Errorf("%w: %w", domain.ErrRenderFailure, err)}
			o.failed.Add(1)
			o.progress.UnitFailed(org.ID, unit, uerr)
			if o.cfg.RenderPolicy == config.RenderPolicyAbort {
				return count, artifacts, uerr
			}
			olog.Warn().Err(uerr).Msg("render fallido; unidad omitida")
			continue
		}

		// El ID estable prefija la subclave: dos números distintos que
		// colisionan tras el saneo ("INV/002" e "INV-002") no pueden
		// sobreescribirse entre sí, igual que el prefijo numérico del
		// namespace distingue organizaciones de nombre coincidente.
		subKey := fmt.Sprintf("invoice_%d_%s.pdf", inv.ID, inv.Number)
		ref, err := o.writeArtifact(ctx, ns, subKey, data)
		// Soltar la referencia al documento antes de la siguiente unidad:
		// los renders pueden ser grandes y la ventana ya retiene W facturas.
		data = nil //nolint:ineffassign
		if err != nil {
			uerr := &UnitError{OrgID: org.ID, Unit: unit,
				Err: fmt.Errorf("%w: %w", domain.ErrArtifactWrite, err)}
			o.failed.Add(1)
			o.progress.UnitFailed(org.ID, unit, uerr)
			olog.Error().Err(uerr).Msg("escritura de artefacto fallida; unidad omitida")
			continue
		}

		artifacts = append(artifacts, ref)
		count++
		o.progress.UnitDone(o.done.Add(1), o.total, org.ID, unit)
	}
	return count, artifacts, nil
}

// exportExpenses vuelca los gastos de la organización a su CSV con
// adquisición con ámbito: el sink se cierra en todo camino de salida.
// Un fallo al abrirlo omite solo la exportación tabular de esta organización.
func (o *Orchestrator) exportExpenses(
	ctx context.Context,
	olog *logger.Logger,
	org *entity.Organization,
	ns string,
) (int64, []ArtifactRef, error) {
	sink, err := o.store.OpenExpenseSink(ns)
	if err != nil {
		o.failed.Add(1)
		o.progress.UnitFailed(org.ID, "expenses", err)
		olog.Error().Err(err).Msg("no se pudo abrir el CSV de gastos; exportación tabular omitida")
		return 0, nil, nil
	}
	closed := false
	defer func() {
		if !closed {
			_ = sink.Close()
		}
	}()

	cur, err := o.expenses.StreamByOrganization(ctx, org.ID)
	if err != nil {
		o.failed.Add(1)
		o.progress.UnitFailed(org.ID, "expenses", err)
		olog.Error().Err(err).Msg("cursor de gastos no disponible")
		return 0, nil, nil
	}
	defer cur.Close()

	var count int64
	for {
		if err := ctx.Err(); err != nil {
			return count, nil, err
		}
		e, ok, err := cur.Next(ctx)
		if err != nil {
			o.failed.Add(1)
			o.progress.UnitFailed(org.ID, "expenses", err)
			olog.Error().Err(err).Msg("cursor de gastos interrumpido; CSV parcial conservado")
			break
		}
		if !ok {
			break
		}
		if err := sink.WriteRow(e); err != nil {
			o.failed.Add(1)
			o.progress.UnitFailed(org.ID, fmt.Sprintf("expense %d", e.ID), err)
			olog.Error().Err(err).Msg("fila de gasto no escrita; exportación tabular interrumpida")
			break
		}
		count++
	}

	closed = true
	if err := sink.Close(); err != nil {
		olog.Warn().Err(err).Msg("cierre del CSV de gastos con error")
		return count, nil, nil
	}
	return count, []ArtifactRef{sink.Ref()}, nil
}

// writeArtifact persiste el documento con reintento acotado para fallos
// transitorios de escritura.
func (o *Orchestrator) writeArtifact(ctx context.Context, ns, subKey string, data []byte) (ArtifactRef, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = fetchRetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, fetchMaxRetries), ctx)

	var ref ArtifactRef
	err := backoff.Retry(func() error {
		var werr error
		ref, werr = o.store.WriteArtifact(ns, subKey, data)
		return werr
	}, policy)
	return ref, err
}
