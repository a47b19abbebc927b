package entity

import "time"

// Customer representa el cliente al que se le emitió una factura.
type Customer struct {
	ID        int64
	Name      string
	TaxID     string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Address es un bloque de dirección ya compuesto por la fuente
// (facturación, envío o el de la propia organización).
type Address struct {
	Line1      string
	Line2      string
	City       string
	Zone       string // departamento / estado / provincia
	PostalCode string
	Country    string
}

// Lines devuelve las líneas no vacías del bloque, listas para renderizar.
func (a Address) Lines() []string {
	out := make([]string, 0, 4)
	if a.Line1 != "" {
		out = append(out, a.Line1)
	}
	if a.Line2 != "" {
		out = append(out, a.Line2)
	}
	cityLine := a.City
	if a.Zone != "" {
		if cityLine != "" {
			cityLine += ", "
		}
		cityLine += a.Zone
	}
	if a.PostalCode != "" {
		if cityLine != "" {
			cityLine += " "
		}
		cityLine += a.PostalCode
	}
	if cityLine != "" {
		out = append(out, cityLine)
	}
	if a.Country != "" {
		out = append(out, a.Country)
	}
	return out
}
