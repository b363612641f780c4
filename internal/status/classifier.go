package status

import (
	"strings"

	"shopdesk/internal/models"
)

// Classify maps a raw courier status string to the internal three-valued
// order status. It is total: every input resolves to exactly one of
// pending, paid or cancelled.
//
// Rules are checked in priority order, substring match, case-insensitive:
//  1. return/cancelled -> cancelled (covers RETURN, PAID RETURN, PICKUP CANCELLED)
//  2. delivered/partial/exchange -> paid (covers PARTIAL DELIVERY, EXCHANGE)
//  3. anything else -> pending
//
// A status containing both "return" and "delivered" is cancelled because
// rule 1 wins.
func Classify(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return models.OrderStatusPending
	}

	if strings.Contains(normalized, "return") || strings.Contains(normalized, "cancelled") {
		return models.OrderStatusCancelled
	}

	if strings.Contains(normalized, "delivered") ||
		strings.Contains(normalized, "partial") ||
		strings.Contains(normalized, "exchange") {
		return models.OrderStatusPaid
	}

	return models.OrderStatusPending
}

// DisplayStatus buckets a raw courier status into the richer taxonomy used
// for dashboard badges. Unknown statuses pass through unchanged.
func DisplayStatus(raw string) string {
	normalized := normalize(raw)

	switch {
	case strings.Contains(normalized, "pickup_cancelled"),
		strings.Contains(normalized, "pickup_cancel"),
		strings.Contains(normalized, "cancelled"):
		return models.CourierStatusCancelled
	case strings.Contains(normalized, "in_transit"),
		strings.Contains(normalized, "picked_up"):
		return models.CourierStatusInTransit
	case strings.Contains(normalized, "out_for_delivery"):
		return models.CourierStatusOutForDelivery
	case strings.Contains(normalized, "delivered"),
		strings.Contains(normalized, "completed"):
		return models.CourierStatusDelivered
	case strings.Contains(normalized, "returned"):
		return models.CourierStatusReturned
	}

	return raw
}

// normalize lowercases and replaces every non-alphanumeric character with an
// underscore, so "Out For Delivery" and "out-for-delivery" compare equal.
func normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	return b.String()
}
