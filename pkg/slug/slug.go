// Package slug produce identificadores seguros para el sistema de archivos
// a partir de texto libre (nombres de organización, números de factura).
// Los nombres vienen del usuario: sin sanear podrían escapar del directorio
// de exportación o generar rutas inválidas.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents descompone (NFD), elimina las marcas combinantes y recompone:
// "Señaló" → "Senalo".
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make convierte texto libre en un slug: minúsculas, solo [a-z0-9] y guiones
// simples, sin guiones en los extremos. "Acme & Co. / Skis!" → "acme-co-skis".
func Make(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	prevHyphen := true // suprime guion inicial
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Filename sanea una clave derivada de texto libre para usarla como nombre
// de archivo dentro de un namespace: nunca crea subdirectorios ni escapa de
// la raíz. Conserva mayúsculas y puntos interiores (los números de factura
// suelen llevarlos); separadores de ruta y caracteres reservados pasan a "-".
func Filename(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	// Sin "." ni ".." ni prefijos de ocultación: un nombre hecho solo de
	// puntos o guiones no identifica nada.
	out := strings.Trim(b.String(), ".-")
	if out == "" {
		return "sin-titulo"
	}
	return out
}
