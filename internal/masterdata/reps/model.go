package reps

import "time"

// Rep is a sales representative. CommissionPercent is applied to invoice
// totals when the rep is attached to a sales invoice.
type Rep struct {
	ID                int64     `json:"id"`
	NameAr            string    `json:"name_ar"`
	Phone             string    `json:"phone,omitempty"`
	CommissionPercent float64   `json:"commission_percent"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Commission returns the rep commission for an invoice total, rounded to
// two decimals by the caller's pricing rules.
func (r Rep) Commission(total float64) float64 {
	if total <= 0 || r.CommissionPercent <= 0 {
		return 0
	}
	return total * r.CommissionPercent / 100
}
