package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-fiscal/internal/application/fiscal"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/pkg/config"
	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

var _ fiscal.Submitter = (*Client)(nil)

// maxBody bytes leídos de la respuesta; el detalle guardado se recorta después a caracteres.
const maxBody = 64 << 10

// Client remite los registros encadenados al endpoint Veri*Factu de cada empresa.
// Un único POST JSON por registro, sin reintentos.
type Client struct {
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient construye el cliente con el timeout total y el de conexión de la configuración.
func NewClient(cfg config.ComplianceConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connect

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		log:        log.With().Str("component", "verifactu_client").Logger(),
	}
}

// ── Formato de envío ──────────────────────────────────────────────────────────

type payload struct {
	Mode    string   `json:"mode"`
	Emisor  party    `json:"emisor"`
	Factura factura  `json:"factura"`
	Chain   chaining `json:"encadenado"`
}

type party struct {
	NIF    string `json:"nif"`
	Nombre string `json:"nombre"`
}

type clienteJSON struct {
	Nombre string `json:"nombre"`
	NIF    string `json:"nif"`
}

type factura struct {
	ID      string      `json:"id"`
	Numero  string      `json:"numero"`
	Fecha   string      `json:"fecha"`
	Cliente clienteJSON `json:"cliente"`
	Totales totales     `json:"totales"`
}

type totales struct {
	BaseImponible amount    `json:"base_imponible"`
	IVA           []ivaItem `json:"iva"`
	Total         amount    `json:"total"`
}

type ivaItem struct {
	Tipo  amount `json:"tipo"`
	Base  amount `json:"base"`
	Cuota amount `json:"cuota"`
}

type chaining struct {
	HashActual       string `json:"hash_actual"`
	HashAnterior     string `json:"hash_anterior"`
	FechaRegistroUTC string `json:"fecha_registro_utc"`
}

// amount importe serializado como número JSON con dos decimales exactos.
type amount decimal.Decimal

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(2)), nil
}

// BuildPayload arma el cuerpo JSON del envío a partir del registro y la factura.
func BuildPayload(req fiscal.SubmissionRequest) ([]byte, error) {
	if req.Entry == nil || req.Invoice == nil || req.Issuer == nil {
		return nil, fmt.Errorf("envío incompleto: registro, factura y emisor son obligatorios")
	}
	inv, entry := req.Invoice, req.Entry

	var cli clienteJSON
	if req.Customer != nil {
		cli = clienteJSON{Nombre: req.Customer.Name, NIF: verifactu.NormalizeTaxID(req.Customer.TaxID)}
	}

	// Sin IVA se informa igualmente una línea a tipo cero.
	iva := ivaItem{Tipo: amount(decimal.Zero), Base: amount(inv.Subtotal), Cuota: amount(decimal.Zero)}
	if inv.TaxRate.IsPositive() {
		iva = ivaItem{Tipo: amount(inv.TaxRate), Base: amount(inv.Subtotal), Cuota: amount(inv.TaxAmount)}
	}

	p := payload{
		Mode: req.Mode,
		Emisor: party{
			NIF:    verifactu.NormalizeTaxID(req.Issuer.TaxID),
			Nombre: req.Issuer.Name,
		},
		Factura: factura{
			ID:      inv.ID,
			Numero:  entry.InvoiceNumber,
			Fecha:   entry.InvoiceDate.Format(verifactu.DateLayout),
			Cliente: cli,
			Totales: totales{
				BaseImponible: amount(inv.Subtotal),
				IVA:           []ivaItem{iva},
				Total:         amount(entry.InvoiceTotal),
			},
		},
		Chain: chaining{
			HashActual:       entry.Hash,
			HashAnterior:     entry.PreviousHash,
			FechaRegistroUTC: verifactu.FormatTimestamp(entry.RegisteredAt),
		},
	}
	return json.Marshal(p)
}

// Submit hace el POST. 2xx → SENT con el cuerpo de la respuesta; cualquier otro
// estado o error de red → ERROR con el detalle.
func (c *Client) Submit(ctx context.Context, req fiscal.SubmissionRequest) fiscal.SubmissionResult {
	if strings.TrimSpace(req.URL) == "" {
		return failed("endpoint Veri*Factu no configurado")
	}
	body, err := BuildPayload(req)
	if err != nil {
		return failed(err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(body))
	if err != nil {
		return failed(fmt.Sprintf("petición inválida: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).
			Str("company_id", req.Entry.CompanyID).
			Str("number", req.Entry.InvoiceNumber).
			Str("mode", req.Mode).
			Msg("error de red en envío Veri*Factu")
		return failed(fmt.Sprintf("error de red: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return failed(fmt.Sprintf("HTTP %d: lectura de respuesta: %v", resp.StatusCode, err))
	}
	text := strings.TrimSpace(string(raw))

	c.log.Debug().
		Str("company_id", req.Entry.CompanyID).
		Str("number", req.Entry.InvoiceNumber).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("envío Veri*Factu")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failed(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, text))
	}
	return fiscal.SubmissionResult{
		Status: entity.SubmissionSent,
		Detail: fiscal.Truncate(text, fiscal.MaxSubmissionDetail),
	}
}

func failed(detail string) fiscal.SubmissionResult {
	return fiscal.SubmissionResult{
		Status: entity.SubmissionError,
		Detail: fiscal.Truncate(detail, fiscal.MaxSubmissionDetail),
	}
}
