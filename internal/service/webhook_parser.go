package service

import (
	"bytes"
	"encoding/json"

	"shopdesk/internal/models"
)

// The courier webhook has accumulated four response shapes over time. They
// are decoded in a fixed priority order; the first shape that yields a
// status wins and anything unrecognized falls back to pending:
//
//  1. result envelope array:  [{"type":"success","code":200,"data":{"order_status":...}}]
//  2. nested data object:     {"data":{"order_status":...}}
//  3. top-level order_status: {"order_status":...}
//  4. legacy keys:            {"status":...} or {"courier_status":...}

type statusData struct {
	OrderStatus string `json:"order_status"`
}

type statusEnvelope struct {
	Type string      `json:"type"`
	Code int         `json:"code"`
	Data *statusData `json:"data"`
}

type statusBody struct {
	Data          *statusData `json:"data"`
	OrderStatus   string      `json:"order_status"`
	Status        string      `json:"status"`
	CourierStatus string      `json:"courier_status"`
}

// extractCourierStatus pulls the raw courier status string out of a webhook
// response body. It never fails: unparseable or unrecognized bodies resolve
// to pending.
func extractCourierStatus(body []byte) string {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var envelopes []statusEnvelope
		if err := json.Unmarshal(trimmed, &envelopes); err == nil && len(envelopes) > 0 {
			first := envelopes[0]
			if first.Type == "success" && first.Data != nil && first.Data.OrderStatus != "" {
				return first.Data.OrderStatus
			}
		}
		return models.OrderStatusPending
	}

	var parsed statusBody
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return models.OrderStatusPending
	}

	switch {
	case parsed.Data != nil && parsed.Data.OrderStatus != "":
		return parsed.Data.OrderStatus
	case parsed.OrderStatus != "":
		return parsed.OrderStatus
	case parsed.Status != "":
		return parsed.Status
	case parsed.CourierStatus != "":
		return parsed.CourierStatus
	}

	return models.OrderStatusPending
}
