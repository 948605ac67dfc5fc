package verifactu

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QRURL URL de cotejo impresa en el documento:
// {base}?nif=..&numserie=..&fecha=DD-MM-YYYY&importe=0.00
func QRURL(base, issuerTaxID, invoiceNumber string, date time.Time, total decimal.Decimal) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep +
		"nif=" + url.QueryEscape(NormalizeTaxID(issuerTaxID)) +
		"&numserie=" + url.QueryEscape(strings.TrimSpace(invoiceNumber)) +
		"&fecha=" + date.Format("02-01-2006") +
		"&importe=" + FormatAmount(total)
}
