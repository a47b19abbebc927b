package export

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/Exportador/internal/domain"
)

// Cursor recorre una colección hacia adelante, visitando cada registro
// exactamente una vez y en orden no decreciente de clave. Close es
// idempotente y debe llamarse en todo camino de salida.
type Cursor[T any] interface {
	Next(ctx context.Context) (item T, ok bool, err error)
	Close()
}

// FetchWindow trae la siguiente ventana: hasta limit registros con clave
// estrictamente mayor que afterKey, en orden ascendente de clave.
// Paginación keyset: la posición es la última clave vista, nunca un offset.
type FetchWindow[T any] func(ctx context.Context, afterKey int64, limit int) ([]T, error)

// WindowCursor implementa la disciplina de re-consulta por ventanas: pide la
// siguiente ventana solo cuando la anterior se agotó, así la memoria retenida
// es O(tamaño de ventana) y no O(total de la colección). Se usa cuando la
// fuente no ofrece streaming real del lado del servidor.
type WindowCursor[T any] struct {
	fetch   FetchWindow[T]
	keyOf   func(T) int64
	window  int
	buf     []T
	pos     int
	lastKey int64
	done    bool
	closed  bool
}

// NewWindowCursor construye el cursor. keyOf debe devolver la clave estable
// y ordenable del registro (el ID numérico).
func NewWindowCursor[T any](fetch FetchWindow[T], keyOf func(T) int64, window int) *WindowCursor[T] {
	if window < 1 {
		window = 1
	}
	return &WindowCursor[T]{fetch: fetch, keyOf: keyOf, window: window}
}

// Next entrega el siguiente registro. ok=false sin error señala el fin de la
// colección. Un fallo de la fuente (tras los reintentos acotados) envuelve
// domain.ErrSourceUnavailable y deja el cursor agotado: la salida parcial ya
// emitida se conserva tal cual.
func (c *WindowCursor[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if c.closed || c.done && c.pos >= len(c.buf) {
		return zero, false, nil
	}

	if c.pos >= len(c.buf) {
		win, err := fetchWithRetry(ctx, func(ctx context.Context) ([]T, error) {
			return c.fetch(ctx, c.lastKey, c.window)
		})
		if err != nil {
			c.Close()
			return zero, false, fmt.Errorf("%w: ventana tras clave %d: %w",
				domain.ErrSourceUnavailable, c.lastKey, err)
		}
		if len(win) == 0 {
			c.Close()
			return zero, false, nil
		}
		// Una ventana corta indica que la fuente no tiene más registros.
		if len(win) < c.window {
			c.done = true
		}
		c.buf = win
		c.pos = 0
		c.lastKey = c.keyOf(win[len(win)-1])
	}

	item := c.buf[c.pos]
	c.pos++
	return item, true, nil
}

// Close agota el cursor y suelta la ventana retenida.
func (c *WindowCursor[T]) Close() {
	c.closed = true
	c.buf = nil
	c.pos = 0
}

// Parámetros del reintento acotado para fallos transitorios de la fuente.
const (
	fetchMaxRetries    = 2
	fetchRetryInterval = 200 * time.Millisecond
)

// fetchWithRetry ejecuta fn con backoff exponencial acotado: cubre cortes
// transitorios de la fuente sin cambiar el comportamiento externo.
func fetchWithRetry[T any](ctx context.Context, fn func(ctx context.Context) ([]T, error)) ([]T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = fetchRetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, fetchMaxRetries), ctx)

	var out []T
	op := func() error {
		var err error
		out, err = fn(ctx)
		return err
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return out, nil
}
