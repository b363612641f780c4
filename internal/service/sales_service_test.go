package service

import (
	"regexp"
	"testing"
	"time"

	"shopdesk/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func saleWith(status string, grandTotal, amountDue string) models.Sale {
	return models.Sale{
		OrderStatus: status,
		GrandTotal:  decimal.RequireFromString(grandTotal),
		AmountDue:   decimal.RequireFromString(amountDue),
	}
}

func TestComputeStats(t *testing.T) {
	sales := []models.Sale{
		saleWith(models.OrderStatusPaid, "150.50", "0"),
		saleWith(models.OrderStatusPending, "200", "80.25"),
		saleWith(models.OrderStatusPartial, "100", "40"),
		saleWith(models.OrderStatusCancelled, "999", "999"),
		// Status casing from older rows must not skew the buckets.
		saleWith("PAID", "49.50", "0"),
	}

	stats := ComputeStats(sales)

	assert.True(t, stats.TotalRevenue.Equal(decimal.RequireFromString("500")),
		"revenue %s", stats.TotalRevenue)
	assert.Equal(t, 4, stats.RevenueCount)

	assert.True(t, stats.TotalPaid.Equal(decimal.RequireFromString("200")),
		"paid %s", stats.TotalPaid)
	assert.Equal(t, 2, stats.PaidCount)

	assert.True(t, stats.TotalDue.Equal(decimal.RequireFromString("120.25")),
		"due %s", stats.TotalDue)
	assert.Equal(t, 2, stats.DueCount)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)

	assert.True(t, stats.TotalRevenue.IsZero())
	assert.True(t, stats.TotalPaid.IsZero())
	assert.True(t, stats.TotalDue.IsZero())
	assert.Zero(t, stats.RevenueCount)
}

func TestNewInvoiceNumber(t *testing.T) {
	at := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)

	got := NewInvoiceNumber(at)
	assert.Regexp(t, regexp.MustCompile(`^INV-20260829-[0-9A-F]{4}$`), got)

	// Suffixes are random, so back-to-back invoices almost never collide.
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		seen[NewInvoiceNumber(at)] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}
