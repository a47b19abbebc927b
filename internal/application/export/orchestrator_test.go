package export_test

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Exportador/internal/application/export"
	"github.com/jhoicas/Exportador/internal/domain"
	"github.com/jhoicas/Exportador/internal/domain/entity"
	"github.com/jhoicas/Exportador/internal/domain/repository"
	"github.com/jhoicas/Exportador/internal/infrastructure/storage"
	"github.com/jhoicas/Exportador/pkg/config"
	"github.com/jhoicas/Exportador/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes de las fuentes y del renderizador
// ──────────────────────────────────────────────────────────────────────────────

type fakeOrgRepo struct {
	orgs []*entity.Organization
	fail bool
}

func (r *fakeOrgRepo) ListAfter(_ context.Context, afterID int64, limit int) ([]*entity.Organization, error) {
	if r.fail {
		return nil, errors.New("fuente de organizaciones caída")
	}
	var out []*entity.Organization
	for _, o := range r.orgs {
		if o.ID > afterID {
			out = append(out, o)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeInvoiceRepo struct {
	byOrg map[int64][]*entity.Invoice

	// failAfterKey > 0 hace fallar toda ventana pedida desde esa clave en
	// adelante, simulando una fuente que se cae a mitad del recorrido.
	failAfterKey int64
}

func (r *fakeInvoiceRepo) CountAll(_ context.Context) (int64, error) {
	var n int64
	for _, invs := range r.byOrg {
		n += int64(len(invs))
	}
	return n, nil
}

func (r *fakeInvoiceRepo) ListByOrganizationAfter(_ context.Context, orgID, afterID int64, limit int) ([]*entity.Invoice, error) {
	if r.failAfterKey > 0 && afterID >= r.failAfterKey {
		return nil, errors.New("fuente de facturas caída")
	}
	var out []*entity.Invoice
	for _, inv := range r.byOrg[orgID] {
		if inv.ID > afterID {
			out = append(out, inv)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeExpenseRepo struct {
	byOrg map[int64][]*entity.Expense
}

func (r *fakeExpenseRepo) StreamByOrganization(_ context.Context, orgID int64) (repository.ExpenseCursor, error) {
	return &sliceExpenseCursor{items: r.byOrg[orgID]}, nil
}

type sliceExpenseCursor struct {
	items []*entity.Expense
	pos   int
}

func (c *sliceExpenseCursor) Next(_ context.Context) (*entity.Expense, bool, error) {
	if c.pos >= len(c.items) {
		return nil, false, nil
	}
	e := c.items[c.pos]
	c.pos++
	return e, true, nil
}

func (c *sliceExpenseCursor) Close() {}

// fakeFieldRepo cuenta las cargas: la invariante es exactamente UNA por corrida.
type fakeFieldRepo struct {
	fields []*entity.CustomField
	calls  int
}

func (r *fakeFieldRepo) ListByScope(_ context.Context, scope string) ([]*entity.CustomField, error) {
	r.calls++
	return r.fields, nil
}

type fakeRenderer struct {
	failNumbers map[string]bool
}

func (r *fakeRenderer) Render(_ context.Context, key string, b *export.InvoiceBundle) ([]byte, error) {
	if r.failNumbers[b.Invoice.Number] {
		return nil, errors.New("plantilla rota")
	}
	return []byte("%PDF " + key + " " + b.Invoice.Number), nil
}

// sinkFailStore fuerza el fallo de apertura del CSV, dejando el resto del
// almacén intacto (aislamiento de dominios de fallo).
type sinkFailStore struct {
	export.Store
}

func (s sinkFailStore) OpenExpenseSink(string) (export.ExpenseSink, error) {
	return nil, fmt.Errorf("%w: disco lleno", domain.ErrSinkOpen)
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado del escenario
// ──────────────────────────────────────────────────────────────────────────────

func demoInvoice(id, orgID int64, number string) *entity.Invoice {
	return &entity.Invoice{
		ID:             id,
		OrganizationID: orgID,
		Number:         number,
		Date:           time.Date(2025, 3, int(id%27)+1, 0, 0, 0, 0, time.UTC),
		Customer:       entity.Customer{ID: 1, Name: "Cliente"},
		NetTotal:       decimal.NewFromInt(100),
		TaxTotal:       decimal.NewFromInt(19),
		GrandTotal:     decimal.NewFromInt(119),
	}
}

func demoExpense(id, orgID int64, amount string) *entity.Expense {
	return &entity.Expense{
		ID:             id,
		OrganizationID: orgID,
		Date:           time.Date(2025, 3, int(id), 0, 0, 0, 0, time.UTC),
		Amount:         decimal.RequireFromString(amount),
	}
}

type scenario struct {
	orgs     *fakeOrgRepo
	invoices *fakeInvoiceRepo
	expenses *fakeExpenseRepo
	fields   *fakeFieldRepo
	renderer *fakeRenderer
	fs       afero.Fs
	store    export.Store
	cfg      config.ExportConfig
}

func newScenario() *scenario {
	fs := afero.NewMemMapFs()
	return &scenario{
		orgs: &fakeOrgRepo{orgs: []*entity.Organization{
			{ID: 42, Name: "Acme & Co. / Skis!"},
		}},
		invoices: &fakeInvoiceRepo{byOrg: map[int64][]*entity.Invoice{
			42: {
				demoInvoice(1, 42, "INV-001"),
				demoInvoice(2, 42, "INV/002"),
				demoInvoice(3, 42, "INV-003"),
			},
		}},
		expenses: &fakeExpenseRepo{byOrg: map[int64][]*entity.Expense{
			42: {demoExpense(1, 42, "120.50"), demoExpense(2, 42, "19.99")},
		}},
		fields: &fakeFieldRepo{fields: []*entity.CustomField{
			{ID: 1, Scope: entity.CustomFieldScopeItem, Label: "Garantía", ValueTemplate: "12 meses"},
		}},
		renderer: &fakeRenderer{failNumbers: map[string]bool{}},
		fs:       fs,
		store:    storage.NewFSStore(fs, "exports"),
		cfg: config.ExportConfig{
			Root:            "exports",
			ChunkSize:       2,
			WindowSize:      2,
			Workers:         1,
			RenderPolicy:    config.RenderPolicySkip,
			DefaultTemplate: "standard",
		},
	}
}

func (s *scenario) orchestrator(opts ...export.Option) *export.Orchestrator {
	opts = append(opts, export.WithReclaimHint(func() {}))
	return export.NewOrchestrator(
		s.orgs, s.invoices, s.expenses, s.fields,
		s.renderer, s.store, s.cfg, logger.Nop(), opts...,
	)
}

func listNames(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_ExtremoAExtremo(t *testing.T) {
	// 1 organización, 3 facturas, 2 gastos → 3 PDFs y un CSV de 3 filas
	// (2 gastos + cabecera), todo bajo el namespace de la organización.
	s := newScenario()
	report, err := s.orchestrator().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Total)
	assert.Equal(t, int64(3), report.Done)
	assert.Equal(t, int64(0), report.Failed)

	ns := filepath.Join("exports", "42_acme-co-skis")
	names := listNames(t, s.fs, ns)
	assert.ElementsMatch(t, []string{
		"invoice_1_INV-001.pdf",
		"invoice_2_INV-002.pdf", // el "/" del número no creó un subdirectorio
		"invoice_3_INV-003.pdf",
		"expenses.csv",
		"manifest.xml",
	}, names)

	data, err := afero.ReadFile(s.fs, filepath.Join(ns, "expenses.csv"))
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Category", "Amount", "Notes"}, rows[0])
	assert.Equal(t, "120.50", rows[1][2])
	assert.Equal(t, "", rows[2][1]) // sin categoría → campo vacío
}

func TestRun_ReferenciaSeCargaUnaSolaVez(t *testing.T) {
	// Dos organizaciones, varias facturas: la carga de campos
	// personalizados ocurre exactamente una vez por corrida.
	s := newScenario()
	s.orgs.orgs = append(s.orgs.orgs, &entity.Organization{ID: 77, Name: "Otra Org"})
	s.invoices.byOrg[77] = []*entity.Invoice{demoInvoice(10, 77, "A-1"), demoInvoice(11, 77, "A-2")}
	s.expenses.byOrg[77] = nil

	report, err := s.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.Done)
	assert.Equal(t, 1, s.fields.calls)
}

func TestRun_FalloDeSinkNoAfectaFacturas(t *testing.T) {
	s := newScenario()
	s.store = sinkFailStore{Store: s.store}

	report, err := s.orchestrator().Run(context.Background())
	require.NoError(t, err)

	// Las 3 facturas salieron aunque el CSV no pudo abrirse, y el fallo
	// de la etapa tabular queda contado en el resumen.
	assert.Equal(t, int64(3), report.Done)
	assert.Equal(t, int64(1), report.Failed)
	ns := filepath.Join("exports", "42_acme-co-skis")
	names := listNames(t, s.fs, ns)
	assert.NotContains(t, names, "expenses.csv")
	assert.Contains(t, names, "invoice_1_INV-001.pdf")
}

func TestRun_NumerosColisionanTrasSaneo(t *testing.T) {
	// "INV/002" e "INV-002" sanean al mismo nombre; el prefijo de ID
	// mantiene una ruta única por unidad: ninguna sobreescribe a la otra.
	s := newScenario()
	s.invoices.byOrg[42] = []*entity.Invoice{
		demoInvoice(1, 42, "INV/002"),
		demoInvoice(2, 42, "INV-002"),
	}

	report, err := s.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Done)

	ns := filepath.Join("exports", "42_acme-co-skis")
	names := listNames(t, s.fs, ns)
	assert.Contains(t, names, "invoice_1_INV-002.pdf")
	assert.Contains(t, names, "invoice_2_INV-002.pdf")

	var pdfs int
	for _, n := range names {
		if strings.HasSuffix(n, ".pdf") {
			pdfs++
		}
	}
	assert.Equal(t, 2, pdfs)
}

func TestRun_CursorDeFacturasInterrumpido(t *testing.T) {
	// La fuente se cae tras la primera ventana: la salida parcial se
	// conserva, los gastos corren igual y el resumen registra el fallo.
	s := newScenario()
	s.cfg.WindowSize = 2
	s.invoices.failAfterKey = 2

	report, err := s.orchestrator().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.Done)
	assert.Equal(t, int64(1), report.Failed)

	ns := filepath.Join("exports", "42_acme-co-skis")
	names := listNames(t, s.fs, ns)
	assert.Contains(t, names, "invoice_1_INV-001.pdf")
	assert.Contains(t, names, "invoice_2_INV-002.pdf")
	assert.NotContains(t, names, "invoice_3_INV-003.pdf")
	assert.Contains(t, names, "expenses.csv")
}

func TestRun_RenderFallido_PoliticaSkip(t *testing.T) {
	s := newScenario()
	s.renderer.failNumbers["INV/002"] = true

	report, err := s.orchestrator().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.Done)
	assert.Equal(t, int64(1), report.Failed)

	// Las demás unidades no se corrompen ni se bloquean.
	ns := filepath.Join("exports", "42_acme-co-skis")
	names := listNames(t, s.fs, ns)
	assert.Contains(t, names, "invoice_1_INV-001.pdf")
	assert.Contains(t, names, "invoice_3_INV-003.pdf")
	assert.NotContains(t, names, "invoice_2_INV-002.pdf")
}

func TestRun_RenderFallido_PoliticaAbort(t *testing.T) {
	s := newScenario()
	s.renderer.failNumbers["INV/002"] = true
	s.cfg.RenderPolicy = config.RenderPolicyAbort

	_, err := s.orchestrator().Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRenderFailure)

	var uerr *export.UnitError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, int64(42), uerr.OrgID)
	assert.Contains(t, uerr.Unit, "INV/002")
}

func TestRun_FuentePrimerNivelCaida_EsFatal(t *testing.T) {
	s := newScenario()
	s.orgs.fail = true

	_, err := s.orchestrator().Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestRun_Cancelacion(t *testing.T) {
	s := newScenario()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.orchestrator().Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ReclamoEntreLotes(t *testing.T) {
	// 5 organizaciones con lotes de 2 → 3 lotes → 3 hints de reclamo.
	s := newScenario()
	s.orgs.orgs = nil
	for i := int64(1); i <= 5; i++ {
		s.orgs.orgs = append(s.orgs.orgs, &entity.Organization{ID: i, Name: fmt.Sprintf("Org %d", i)})
	}
	s.invoices.byOrg = map[int64][]*entity.Invoice{}
	s.expenses.byOrg = map[int64][]*entity.Expense{}

	hints := 0
	o := export.NewOrchestrator(
		s.orgs, s.invoices, s.expenses, s.fields,
		s.renderer, s.store, s.cfg, logger.Nop(),
		export.WithReclaimHint(func() { hints++ }),
	)
	_, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, hints)
}

func TestRun_PoolDeWorkers(t *testing.T) {
	// Con workers > 1 el resultado es el mismo: aislamiento por
	// organización y contador de progreso atómico.
	s := newScenario()
	s.cfg.Workers = 4
	s.orgs.orgs = nil
	s.invoices.byOrg = map[int64][]*entity.Invoice{}
	s.expenses.byOrg = map[int64][]*entity.Expense{}
	for i := int64(1); i <= 6; i++ {
		s.orgs.orgs = append(s.orgs.orgs, &entity.Organization{ID: i, Name: fmt.Sprintf("Org %d", i)})
		s.invoices.byOrg[i] = []*entity.Invoice{
			demoInvoice(i*10+1, i, fmt.Sprintf("N-%d-1", i)),
			demoInvoice(i*10+2, i, fmt.Sprintf("N-%d-2", i)),
		}
	}

	report, err := s.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), report.Done)
	assert.Equal(t, int64(0), report.Failed)
	assert.Equal(t, 1, s.fields.calls)

	for i := int64(1); i <= 6; i++ {
		ns := filepath.Join("exports", fmt.Sprintf("%d_org-%d", i, i))
		names := listNames(t, s.fs, ns)
		assert.Contains(t, names, fmt.Sprintf("invoice_%d_N-%d-1.pdf", i*10+1, i))
	}
}

func TestRun_ReCorridaSobreescribe(t *testing.T) {
	s := newScenario()
	_, err := s.orchestrator().Run(context.Background())
	require.NoError(t, err)
	_, err = s.orchestrator().Run(context.Background())
	require.NoError(t, err)

	// Misma cantidad de artefactos: reemplazo, no acumulación.
	ns := filepath.Join("exports", "42_acme-co-skis")
	assert.Len(t, listNames(t, s.fs, ns), 5)

	data, err := afero.ReadFile(s.fs, filepath.Join(ns, "expenses.csv"))
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
