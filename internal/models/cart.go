package models

import "github.com/shopspring/decimal"

type CartItem struct {
	ID         ID              `json:"itemId"`
	Product    Product         `json:"product"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type Cart struct {
	CartID      ID              `json:"cartId"`
	Items       []CartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// Key identifies a line inside a cart. Lines are merged server-side per product.
func (i CartItem) Key() ID { return i.Product.ID }

// Price is the product's current price, falling back to the unit price snapshot.
func (i CartItem) Price() decimal.Decimal {
	if !i.Product.Price.IsZero() {
		return i.Product.Price
	}
	return i.UnitPrice
}

func (i CartItem) WithQuantity(q int) CartItem {
	i.Quantity = q
	i.TotalPrice = i.Price().Mul(decimal.NewFromInt(int64(q)))
	return i
}

// SumCart folds price*quantity over items.
func SumCart(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price().Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Normalize recomputes every line total and the cart total from prices and quantities.
func (c Cart) Normalize() Cart {
	items := make([]CartItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = it.WithQuantity(it.Quantity)
	}
	c.Items = items
	c.TotalAmount = SumCart(items)
	return c
}
