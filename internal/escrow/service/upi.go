package service

import (
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"fieldserve_backend/platform/apperr"
)

const qrImageSize = 256

// UPIQR renders a UPI deep link for the given job payment as a PNG QR code.
// Amount is in minor currency units and rendered with two decimal places as
// the UPI spec expects.
func (s *Service) UPIQR(jobNumber string, amount int64) ([]byte, error) {
	if amount <= 0 {
		return nil, apperr.Validation("payment amount must be positive")
	}
	vpa := strings.TrimSpace(s.cfg.GetUPIPayeeVPA())
	if vpa == "" {
		return nil, apperr.Internal("upi payee not configured")
	}

	q := url.Values{}
	q.Set("pa", vpa)
	q.Set("pn", s.cfg.GetUPIPayeeName())
	q.Set("am", fmt.Sprintf("%d.%02d", amount/100, amount%100))
	q.Set("cu", "INR")
	q.Set("tn", jobNumber)

	png, err := qrcode.Encode("upi://pay?"+q.Encode(), qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode payment qr", err)
	}
	return png, nil
}
