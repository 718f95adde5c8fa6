package backendtest

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Seeded fixtures.
const (
	UserID        models.ID = "1"
	UserEmail               = "alice@example.com"
	UserPassword            = "secret"
	AdminID       models.ID = "2"
	AdminEmail              = "admin@example.com"
	AdminPassword           = "admin"

	ElectronicsID models.ID = "1"
	BooksID       models.ID = "2"

	PhoneID  models.ID = "10"
	LaptopID models.ID = "11"
	NovelID  models.ID = "12"
	CableID  models.ID = "13"

	PhoneImageID models.ID = "100"
)

var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func (b *Backend) seed() {
	electronics := models.Category{ID: ElectronicsID, Name: "Electronics"}
	books := models.Category{ID: BooksID, Name: "Books"}
	b.categories = []models.Category{electronics, books}

	b.products = []models.Product{
		{ID: PhoneID, Name: "Phone", Brand: "Acme", Description: "A phone", Price: decimal.NewFromInt(10), Inventory: 5, Category: electronics,
			Images: []models.Image{{ID: PhoneImageID, FileName: "phone.png"}}},
		{ID: LaptopID, Name: "Laptop", Brand: "Zenith", Description: "A laptop", Price: decimal.NewFromInt(5), Inventory: 20, Category: electronics},
		{ID: NovelID, Name: "Novel", Brand: "Paper", Description: "A novel", Price: decimal.RequireFromString("12.50"), Inventory: 0, Category: books},
		{ID: CableID, Name: "Phone Cable", Brand: "Acme", Description: "USB-C", Price: decimal.RequireFromString("3.99"), Inventory: 40, Category: electronics},
	}
	b.images[PhoneImageID] = PNG

	b.accounts[UserID] = &account{
		user: models.User{ID: UserID, FirstName: "Alice", LastName: "Doe", Email: UserEmail, AddressList: []models.Address{
			{ID: "500", AddressType: models.AddressHome, Street: "1 Main St", City: "Springfield", State: "IL", Country: "US", PostalCode: "62701", MobileNumber: "5550100"},
		}},
		password: UserPassword,
		roles:    []string{"ROLE_USER"},
	}
	b.accounts[AdminID] = &account{
		user:     models.User{ID: AdminID, FirstName: "Ada", LastName: "Admin", Email: AdminEmail, AddressList: []models.Address{}},
		password: AdminPassword,
		roles:    []string{"ROLE_ADMIN", "ROLE_USER"},
	}

	b.countriesJSON = []byte(`[
		{"name": {"common": "Germany", "official": "Federal Republic of Germany"}, "cca2": "DE"},
		{"name": {"common": "Brazil"}, "cca2": "BR"},
		{"name": {"common": "United States"}, "cca2": "US"},
		{"name": {"common": ""}, "cca2": "XX"}
	]`)
}

func jwtClaims(raw string) jwt.MapClaims {
	tkn, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return jwt.MapClaims{}
	}
	mc, _ := tkn.Claims.(jwt.MapClaims)
	return mc
}
