package invoice

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

// QRSize is the pixel width of the generated square PNG.
const QRSize = 256

var ErrNoInvoice = errors.New("order has no invoice on file")

// QRForInvoice renders the order's invoice reference as a PNG QR code,
// so a buyer can open the seller's invoice from a printed order sheet.
func QRForInvoice(invoiceFile string) ([]byte, error) {
	if invoiceFile == "" {
		return nil, ErrNoInvoice
	}
	return qrcode.Encode(invoiceFile, qrcode.Medium, QRSize)
}
