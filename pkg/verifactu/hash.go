// Package verifactu: huella encadenada de registros de facturación y URL de cotejo (QR).
//
// La huella es SHA-256 (hex minúsculas) sobre un JSON canónico: claves ordenadas,
// sin espacios, sin escapado HTML y con importes como número de 2 decimales.
// La marca de registro forma parte de la huella, por lo que toda verificación
// posterior debe usar la marca persistida y nunca la hora actual.
package verifactu

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// TimestampLayout formato de fecha_registro_utc (UTC, microsegundos).
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// DateLayout formato de la fecha de factura dentro de la huella.
const DateLayout = "2006-01-02"

// Record datos de un registro que entran en la huella.
type Record struct {
	IssuerTaxID   string
	InvoiceNumber string
	InvoiceDate   time.Time
	Total         decimal.Decimal
	PreviousHash  string // vacío en el primer registro de la empresa
	RegisteredAt  time.Time
}

// NormalizeTaxID NIF sin espacios alrededor y en mayúsculas. Un Caser no se
// comparte entre goroutines.
func NormalizeTaxID(s string) string {
	return cases.Upper(language.Und).String(norm.NFC.String(strings.TrimSpace(s)))
}

// RegistrationTime normaliza la marca de registro: UTC truncado a microsegundos,
// la misma precisión que guarda PostgreSQL.
func RegistrationTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// FormatTimestamp marca de registro tal y como entra en la huella y en el envío.
func FormatTimestamp(t time.Time) string {
	return RegistrationTime(t).Format(TimestampLayout)
}

// FormatAmount importe con exactamente 2 decimales (redondeo half-up).
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// Canonical devuelve el JSON canónico del registro.
func Canonical(r Record) ([]byte, error) {
	number := norm.NFC.String(strings.TrimSpace(r.InvoiceNumber))
	if number == "" {
		return nil, fmt.Errorf("verifactu: no se puede generar huella sin número definitivo")
	}
	if r.InvoiceDate.IsZero() {
		return nil, fmt.Errorf("verifactu: no se puede generar huella sin fecha de factura")
	}
	if r.RegisteredAt.IsZero() {
		return nil, fmt.Errorf("verifactu: no se puede generar huella sin marca de registro")
	}

	payload := map[string]any{
		"emisor": map[string]any{
			"nif": NormalizeTaxID(r.IssuerTaxID),
		},
		"factura": map[string]any{
			"numero": number,
			"fecha":  r.InvoiceDate.Format(DateLayout),
			"total":  json.Number(FormatAmount(r.Total)),
		},
		"registro": map[string]any{
			"fecha_registro_utc": FormatTimestamp(r.RegisteredAt),
			"hash_anterior":      r.PreviousHash,
		},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("verifactu: serializar registro: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Hash calcula la huella del registro.
func Hash(r Record) (string, error) {
	canon, err := Canonical(r)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recalcula la huella con los datos persistidos y la compara con la guardada.
func Verify(r Record, stored string) (bool, error) {
	h, err := Hash(r)
	if err != nil {
		return false, err
	}
	return h == stored, nil
}
