package menu

import "github.com/shopspring/decimal"

// Item is a single menu entry. Immutable after catalog load.
type Item struct {
	Name        string
	Price       decimal.Decimal
	Description string
	Allergens   []string
}

// Category is a named, ordered group of items. Names come from a fixed set
// (appetizers, pasta, pizza, mains, desserts, beverages).
type Category struct {
	Name  string
	Items []Item
}

// Info carries the static restaurant facts used for info-intent responses.
type Info struct {
	Name        string
	Tagline     string
	Address     string
	Phone       string
	Email       string
	Website     string
	Hours       []DayHours
	Specialties []string
	Policies    []string
}

// DayHours keeps opening hours in weekday order.
type DayHours struct {
	Day   string
	Hours string
}

// Match is one search hit: the item plus the category it was found in.
type Match struct {
	Category string
	Item     Item
}

// catalogFile mirrors the embedded JSON document.
type catalogFile struct {
	Restaurant struct {
		Name        string `json:"name"`
		Tagline     string `json:"tagline"`
		Address     string `json:"address"`
		Phone       string `json:"phone"`
		Email       string `json:"email"`
		Website     string `json:"website"`
		Hours       []struct {
			Day   string `json:"day"`
			Hours string `json:"hours"`
		} `json:"hours"`
		Specialties []string `json:"specialties"`
		Policies    []string `json:"policies"`
	} `json:"restaurant"`
	Categories []struct {
		Name  string `json:"name"`
		Items []struct {
			Name        string   `json:"name"`
			Price       float64  `json:"price"`
			Description string   `json:"description"`
			Allergens   []string `json:"allergens"`
		} `json:"items"`
	} `json:"categories"`
}
