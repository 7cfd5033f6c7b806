package utils

import qrcode "github.com/skip2/go-qrcode"

// TicketQR renders an entry token as a PNG QR code suitable for
// scanning at the venue gate.
func TicketQR(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(token, qrcode.Medium, size)
}
