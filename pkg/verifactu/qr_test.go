package verifactu_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

func TestQRURL(t *testing.T) {
	got := verifactu.QRURL(
		"https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR",
		"b12345678",
		"A/2025 0001",
		time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString("1210.5"),
	)
	assert.Equal(t,
		"https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR?nif=B12345678&numserie=A%2F2025+0001&fecha=04-03-2025&importe=1210.50",
		got)
}

func TestQRURL_BaseConQuery(t *testing.T) {
	got := verifactu.QRURL("https://example.test/qr?v=1", "B1", "F1", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(5))
	assert.Equal(t, "https://example.test/qr?v=1&nif=B1&numserie=F1&fecha=02-01-2025&importe=5.00", got)
}
