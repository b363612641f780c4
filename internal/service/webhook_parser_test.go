package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCourierStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"result envelope array",
			`[{"type":"success","code":200,"data":{"order_status":"In Transit"}}]`,
			"In Transit",
		},
		{
			"envelope array without success does not fall through",
			`[{"type":"error","code":500,"data":{"order_status":"Delivered"}}]`,
			"pending",
		},
		{
			"empty array",
			`[]`,
			"pending",
		},
		{
			"nested data object",
			`{"data":{"order_status":"Out For Delivery"}}`,
			"Out For Delivery",
		},
		{
			"top-level order_status",
			`{"order_status":"Delivered"}`,
			"Delivered",
		},
		{
			"legacy status key",
			`{"status":"RETURN to sender"}`,
			"RETURN to sender",
		},
		{
			"legacy courier_status key",
			`{"courier_status":"Picked Up"}`,
			"Picked Up",
		},
		{
			"priority: nested data beats top-level keys",
			`{"data":{"order_status":"Delivered"},"order_status":"Cancelled","status":"x"}`,
			"Delivered",
		},
		{
			"priority: order_status beats legacy status",
			`{"order_status":"Delivered","status":"Cancelled"}`,
			"Delivered",
		},
		{
			"unrecognized object",
			`{"message":"ok"}`,
			"pending",
		},
		{
			"invalid json",
			`not json at all`,
			"pending",
		},
		{
			"empty body",
			``,
			"pending",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCourierStatus([]byte(tt.body)))
		})
	}
}
