// Package pdf implementa el renderizador de documentos de factura con
// Maroto v2. Expone un registro de plantillas por clave: el orquestador
// resuelve la clave (regla de negocio dirigida por configuración) y este
// paquete solo renderiza.
//
// Layout de la página A4 (plantilla standard):
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Organización           │  N° Factura + Fecha        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DIRECCIONES: Facturación | Envío | Emisor                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Importe                │
//	│  IMPUESTOS + TOTALES                                         │
//	│  NOTAS + CAMPOS PERSONALIZADOS                               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"bytes"
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	mentity "github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Exportador/internal/application/export"
	"github.com/jhoicas/Exportador/internal/domain"
	"github.com/jhoicas/Exportador/internal/domain/entity"
)

// Claves de plantilla registradas.
const (
	TemplateStandard = "standard"
	TemplateDetailed = "detailed"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorAccent  = &props.Color{Red: 120, Green: 40, Blue: 20}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

var _ export.DocumentRenderer = (*MarotoRenderer)(nil)

type templateFunc func(b *export.InvoiceBundle) core.Maroto

// MarotoRenderer implementa export.DocumentRenderer: función pura del bundle
// recibido, sin estado entre llamadas.
type MarotoRenderer struct {
	templates map[string]templateFunc
}

// NewMarotoRenderer construye el renderizador con las dos plantillas.
func NewMarotoRenderer() *MarotoRenderer {
	return &MarotoRenderer{templates: map[string]templateFunc{
		TemplateStandard: buildStandard,
		TemplateDetailed: buildDetailed,
	}}
}

// Render genera el PDF de la factura del bundle con la plantilla pedida.
// Clave desconocida o bundle malformado envuelven domain.ErrRenderFailure
// etiquetado con la unidad, para que el orquestador decida según su política.
func (r *MarotoRenderer) Render(_ context.Context, templateKey string, b *export.InvoiceBundle) ([]byte, error) {
	if b == nil || b.Invoice == nil || b.Organization == nil {
		return nil, fmt.Errorf("%w: bundle incompleto", domain.ErrRenderFailure)
	}
	build, ok := r.templates[templateKey]
	if !ok {
		return nil, fmt.Errorf("%w: plantilla desconocida %q (factura %s)",
			domain.ErrRenderFailure, templateKey, b.Invoice.Number)
	}

	doc, err := build(b).Generate()
	if err != nil {
		return nil, fmt.Errorf("%w: factura %s: %w", domain.ErrRenderFailure, b.Invoice.Number, err)
	}
	return doc.GetBytes(), nil
}

func pageConfig(title string) *mentity.Config {
	return config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(title, true).
		Build()
}

// ── Plantilla standard ────────────────────────────────────────────────────────

func buildStandard(b *export.InvoiceBundle) core.Maroto {
	m := maroto.New(pageConfig("Factura " + b.Invoice.Number))

	m.AddRows(headerRow(b, colorPrimary))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(addressRow(b.Invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(itemsHeaderRow(colorPrimary, false))
	for _, r := range itemRows(b.Invoice.Items, false) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	for _, r := range taxRows(b.Invoice.Taxes) {
		m.AddRows(r)
	}
	m.AddRows(totalsRow(b.Invoice, colorPrimary))

	for _, r := range notesRows(b.Invoice.Notes) {
		m.AddRows(r)
	}
	for _, r := range customFieldRows(b.CustomFields) {
		m.AddRows(r)
	}
	return m
}

// ── Plantilla detailed ────────────────────────────────────────────────────────

// buildDetailed es la variante con énfasis de marca: logo en la cabecera
// cuando el bundle lo trae, acento de color propio y columna de impuesto
// por línea.
func buildDetailed(b *export.InvoiceBundle) core.Maroto {
	m := maroto.New(pageConfig("Factura " + b.Invoice.Number))

	if len(b.Logo) > 0 {
		m.AddRows(row.New(20).Add(
			image.NewFromBytesCol(3, b.Logo, logoExtension(b.Logo), props.Rect{Percent: 90}),
			col.New(9).Add(
				text.New(b.Organization.Name, props.Text{
					Style: fontstyle.Bold, Size: 14, Color: colorAccent, Top: 4,
				}),
				text.New("Factura "+b.Invoice.Number+"  ·  "+b.Invoice.Date.Format("2006-01-02"),
					props.Text{Size: 9, Top: 13, Color: colorGray}),
			),
		))
	} else {
		m.AddRows(headerRow(b, colorAccent))
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorAccent, Thickness: 0.6}))
	m.AddRows(addressRow(b.Invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorAccent, Thickness: 0.3}))

	m.AddRows(itemsHeaderRow(colorAccent, true))
	for _, r := range itemRows(b.Invoice.Items, true) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorAccent, Thickness: 0.3}))
	for _, r := range taxRows(b.Invoice.Taxes) {
		m.AddRows(r)
	}
	m.AddRows(totalsRow(b.Invoice, colorAccent))

	for _, r := range notesRows(b.Invoice.Notes) {
		m.AddRows(r)
	}
	for _, r := range customFieldRows(b.CustomFields) {
		m.AddRows(r)
	}
	return m
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: organización (izq) y número + fecha (der).
func headerRow(b *export.InvoiceBundle, accent *props.Color) core.Row {
	return row.New(16).Add(
		col.New(7).Add(
			text.New(b.Organization.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: accent, Top: 1,
			}),
			text.New("Cliente: "+b.Invoice.Customer.Name, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FACTURA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: accent, Top: 1,
			}),
			text.New(b.Invoice.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6,
			}),
			text.New("Fecha: "+b.Invoice.Date.Format("2006-01-02"), props.Text{
				Size: 8, Align: align.Right, Top: 12, Color: colorGray,
			}),
		),
	)
}

// addressRow: los tres bloques de dirección, uno por columna.
func addressRow(inv *entity.Invoice) core.Row {
	block := func(label string, a entity.Address) core.Col {
		c := col.New(4)
		c.Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Color: colorGray, Top: 1,
		}))
		top := 5.0
		for _, ln := range a.Lines() {
			c.Add(text.New(ln, props.Text{Size: 8, Top: top}))
			top += 4
		}
		return c
	}
	return row.New(24).Add(
		block("FACTURAR A", inv.BillingAddress),
		block("ENVIAR A", inv.ShippingAddress),
		block("EMISOR", inv.CompanyAddress),
	)
}

// itemsHeaderRow: cabecera de la tabla de líneas.
func itemsHeaderRow(accent *props.Color, withTax bool) core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: accent, Top: 2,
		}))
	}
	if withTax {
		return row.New(8).Add(
			h("Cant.", 1, align.Center),
			h("Descripción", 5, align.Left),
			h("P.Unit", 2, align.Right),
			h("Imp.", 1, align.Center),
			h("Importe", 3, align.Right),
		)
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 6, align.Left),
		h("P.Unit", 2, align.Right),
		h("Importe", 3, align.Right),
	)
}

// itemRows: una fila por línea de la factura.
func itemRows(items []entity.LineItem, withTax bool) []core.Row {
	out := make([]core.Row, 0, len(items))
	for _, it := range items {
		cells := []core.Col{
			col.New(1).Add(text.New(it.Quantity.StringFixed(0),
				props.Text{Size: 8, Align: align.Center, Top: 1})),
		}
		descWidth := 6
		if withTax {
			descWidth = 5
		}
		cells = append(cells,
			col.New(descWidth).Add(text.New(it.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1})),
			col.New(2).Add(text.New(it.UnitPrice.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1})),
		)
		if withTax {
			cells = append(cells, col.New(1).Add(text.New("—",
				props.Text{Size: 8, Align: align.Center, Top: 1, Color: colorGray})))
		}
		cells = append(cells, col.New(3).Add(text.New(it.Amount.StringFixed(2),
			props.Text{Size: 8, Align: align.Right, Top: 1})))
		out = append(out, row.New(7).Add(cells...))
	}
	return out
}

// taxRows: una fila por impuesto aplicado.
func taxRows(taxes []entity.TaxLine) []core.Row {
	out := make([]core.Row, 0, len(taxes))
	for _, tx := range taxes {
		out = append(out, row.New(5).Add(
			col.New(6),
			col.New(3).Add(text.New(fmt.Sprintf("%s (%s%%)", tx.Name, tx.Rate.StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Color: colorGray, Right: 2})),
			col.New(3).Add(text.New(tx.Amount.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Right: 1})),
		))
	}
	return out
}

// totalsRow: subtotal, impuestos y total a pagar.
func totalsRow(inv *entity.Invoice, accent *props.Color) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:"),
			label("Impuestos:"),
			text.New("TOTAL:", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: accent, Right: 2, Top: 10,
			}),
		),
		col.New(3).Add(
			value(inv.NetTotal.StringFixed(2)),
			value(inv.TaxTotal.StringFixed(2)),
			text.New(inv.GrandTotal.StringFixed(2), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: accent, Right: 1, Top: 10,
			}),
		),
	)
}

// notesRows: texto libre de la factura, si lo hay.
func notesRows(notes string) []core.Row {
	if notes == "" {
		return nil
	}
	return []core.Row{
		row.New(4),
		row.New(5).Add(col.New(12).Add(text.New("NOTAS", props.Text{
			Style: fontstyle.Bold, Size: 7, Color: colorGray,
		}))),
		row.New(8).Add(col.New(12).Add(text.New(notes, props.Text{Size: 8, Color: colorGray}))),
	}
}

// customFieldRows: pie con los campos personalizados de la corrida.
func customFieldRows(fields []*entity.CustomField) []core.Row {
	if len(fields) == 0 {
		return nil
	}
	out := []core.Row{
		row.New(4),
		row.New(5).Add(col.New(12).Add(text.New("CAMPOS PERSONALIZADOS", props.Text{
			Style: fontstyle.Bold, Size: 7, Color: colorGray,
		}))),
	}
	for _, f := range fields {
		out = append(out, row.New(4).Add(col.New(12).Add(
			text.New(f.Label+": "+f.ValueTemplate, props.Text{Size: 7, Color: colorGray}),
		)))
	}
	return out
}

// logoExtension detecta el formato del activo de marca por sus magic bytes.
func logoExtension(data []byte) extension.Type {
	if bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}) {
		return extension.Png
	}
	return extension.Jpg
}
