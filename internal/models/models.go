package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type Image struct {
	ID          ID     `json:"id"`
	FileName    string `json:"fileName,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type Product struct {
	ID          ID              `json:"id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Inventory   int             `json:"inventory"`
	Category    Category        `json:"category"`
	Images      []Image         `json:"images,omitempty"`
}

type StockStatus string

const (
	InStock    StockStatus = "in_stock"
	LowStock   StockStatus = "low_stock"
	OutOfStock StockStatus = "out_of_stock"
)

const lowStockThreshold = 10

func (p Product) StockStatus() StockStatus {
	switch {
	case p.Inventory <= 0:
		return OutOfStock
	case p.Inventory < lowStockThreshold:
		return LowStock
	default:
		return InStock
	}
}

type AddressType string

const (
	AddressHome     AddressType = "HOME"
	AddressOffice   AddressType = "OFFICE"
	AddressShipping AddressType = "SHIPPING"
)

func (t AddressType) Valid() bool {
	switch AddressType(strings.ToUpper(string(t))) {
	case AddressHome, AddressOffice, AddressShipping:
		return true
	}
	return false
}

type Address struct {
	ID           ID          `json:"id,omitempty"`
	AddressType  AddressType `json:"addressType"`
	Street       string      `json:"street"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	Country      string      `json:"country"`
	PostalCode   string      `json:"postalCode"`
	MobileNumber string      `json:"mobileNumber"`
}

type User struct {
	ID          ID        `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	AddressList []Address `json:"addressList"`
}

type Registration struct {
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	AddressList []Address `json:"addressList"`
}

// Country is an ISO-3166-1 alpha-2 code with its common name.
type Country struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
}

type PaymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}
