package laundry

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// случайная часть кода из uuid, верхний регистр
func randomCode(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

func newOrderNumber(now time.Time) string {
	return "LDR-" + now.Format("20060102") + "-" + randomCode(6)
}

func newTrackingCode() string {
	return "TRK" + randomCode(10)
}

func newTagID() string {
	return "TAG-" + randomCode(12)
}

func newReferralCode() string {
	return "REF" + randomCode(8)
}

func newCouponCode() string {
	return "LND-" + randomCode(8)
}
