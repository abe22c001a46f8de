package redisx

import "time"

const (
	// Dedup of payment confirmations: dedup:checkout:{payment_id}
	KeyDedupPayment = "dedup:checkout:%s"
)

var TTLDedup = 48 * time.Hour
