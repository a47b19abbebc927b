package storage

import (
	"encoding/csv"
	"fmt"

	"github.com/spf13/afero"

	"github.com/jhoicas/Exportador/internal/application/export"
	"github.com/jhoicas/Exportador/internal/domain/entity"
)

const expenseSinkName = "expenses.csv"

// Cabecera fija del CSV de gastos.
var expenseHeader = []string{"Date", "Category", "Amount", "Notes"}

var _ export.ExpenseSink = (*expenseSink)(nil)

// expenseSink escribe una fila por gasto sobre encoding/csv, que ya aplica
// las reglas de citado del formato (delimitadores, comillas y saltos de
// línea dentro de un campo quedan entre comillas).
type expenseSink struct {
	f     afero.File
	w     *csv.Writer
	rows  int64
	bytes int64
}

func newExpenseSink(f afero.File) (*expenseSink, error) {
	s := &expenseSink{f: f, w: csv.NewWriter(f)}
	if err := s.w.Write(expenseHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("cabecera CSV: %w", err)
	}
	return s, nil
}

// WriteRow serializa un gasto: fecha ISO-8601 (YYYY-MM-DD), categoría vacía
// si no tiene, monto con dos decimales.
func (s *expenseSink) WriteRow(e *entity.Expense) error {
	category := ""
	if e.Category != nil {
		category = *e.Category
	}
	row := []string{
		e.Date.Format("2006-01-02"),
		category,
		e.Amount.StringFixed(2),
		e.Notes,
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("fila de gasto %d: %w", e.ID, err)
	}
	s.rows++
	return nil
}

// Close vacía el búfer y cierra el archivo. Seguro de llamar más de una vez.
func (s *expenseSink) Close() error {
	if s.f == nil {
		return nil
	}
	s.w.Flush()
	flushErr := s.w.Error()
	if info, err := s.f.Stat(); err == nil {
		s.bytes = info.Size()
	}
	closeErr := s.f.Close()
	s.f = nil
	if flushErr != nil {
		return fmt.Errorf("vaciar CSV: %w", flushErr)
	}
	return closeErr
}

// Ref describe el CSV para el manifiesto.
func (s *expenseSink) Ref() export.ArtifactRef {
	return export.ArtifactRef{
		Kind:   "expenses_csv",
		SubKey: expenseSinkName,
		Size:   s.bytes,
	}
}
