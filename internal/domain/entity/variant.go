package entity

// Variant is the read model of a sellable catalog entry. Catalog CRUD lives
// outside this service; orders only snapshot what they need from it.
type Variant struct {
	ID          string
	ProductName string
	Sku         string
	PriceCents  int64
	Currency    string
}
