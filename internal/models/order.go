package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

type OrderLineItem struct {
	ProductID    ID              `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductBrand string          `json:"productBrand,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

type Order struct {
	ID          ID              `json:"id"`
	OrderDate   Date            `json:"orderDate"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	OrderStatus OrderStatus     `json:"orderStatus"`
	Items       []OrderLineItem `json:"items"`
}

// SortOrders orders by date in place; ties keep their relative order.
func SortOrders(orders []Order, newestFirst bool) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i].OrderDate.Time, orders[j].OrderDate.Time
		if newestFirst {
			return a.After(b)
		}
		return a.Before(b)
	})
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Date accepts the backend's ISO date and date-time renderings.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode date: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("decode date: unsupported format %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.RFC3339))
}
