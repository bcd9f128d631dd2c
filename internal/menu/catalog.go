// Package menu holds the immutable restaurant catalog: categories, items,
// search, and the static restaurant facts.
package menu

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed menu.json
var defaultCatalogJSON []byte

// catalogSchema is checked against the catalog document at load time so a
// malformed menu file fails startup instead of surfacing mid-conversation.
const catalogSchema = `{
	"type": "object",
	"required": ["restaurant", "categories"],
	"properties": {
		"restaurant": {
			"type": "object",
			"required": ["name", "address", "phone", "hours"]
		},
		"categories": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "items"],
				"properties": {
					"name": {"type": "string", "enum": ["appetizers", "pasta", "pizza", "mains", "desserts", "beverages"]},
					"items": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["name", "price", "description", "allergens"],
							"properties": {
								"price": {"type": "number", "minimum": 0, "exclusiveMinimum": true}
							}
						}
					}
				}
			}
		}
	}
}`

// Catalog is the loaded menu plus restaurant info. Immutable after load.
type Catalog struct {
	info       Info
	categories []Category
}

// Load builds a Catalog from the embedded default menu document.
func Load() (*Catalog, error) {
	return LoadFrom(defaultCatalogJSON)
}

// LoadFrom builds a Catalog from raw catalog JSON, validating it first.
func LoadFrom(raw []byte) (*Catalog, error) {
	schemaLoader := gojsonschema.NewStringLoader(catalogSchema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("catalog schema validation: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("invalid catalog document: %s", strings.Join(details, "; "))
	}

	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog document: %w", err)
	}

	c := &Catalog{
		info: Info{
			Name:        file.Restaurant.Name,
			Tagline:     file.Restaurant.Tagline,
			Address:     file.Restaurant.Address,
			Phone:       file.Restaurant.Phone,
			Email:       file.Restaurant.Email,
			Website:     file.Restaurant.Website,
			Specialties: file.Restaurant.Specialties,
			Policies:    file.Restaurant.Policies,
		},
	}
	for _, h := range file.Restaurant.Hours {
		c.info.Hours = append(c.info.Hours, DayHours{Day: h.Day, Hours: h.Hours})
	}
	for _, cat := range file.Categories {
		category := Category{Name: cat.Name}
		for _, it := range cat.Items {
			category.Items = append(category.Items, Item{
				Name:        it.Name,
				Price:       decimal.NewFromFloat(it.Price),
				Description: it.Description,
				Allergens:   it.Allergens,
			})
		}
		c.categories = append(c.categories, category)
	}

	return c, nil
}

// Info returns the static restaurant facts.
func (c *Catalog) Info() Info {
	return c.info
}

// CategoryNames returns the category names in declaration order.
func (c *Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		names = append(names, cat.Name)
	}
	return names
}

// Category returns the items of one category, or false when the name is not
// a known category.
func (c *Catalog) Category(name string) (Category, bool) {
	for _, cat := range c.categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// FindItem resolves a free-text candidate to a catalog item using
// case-insensitive substring matching in catalog declaration order. The
// first pass takes the first item whose name contains the candidate; the
// second pass takes the first item whose name appears inside the candidate,
// so "margherita pizza" still resolves to "Margherita".
func (c *Catalog) FindItem(candidate string) (Item, string, bool) {
	needle := strings.ToLower(strings.TrimSpace(candidate))
	if needle == "" {
		return Item{}, "", false
	}

	for _, cat := range c.categories {
		for _, it := range cat.Items {
			if strings.Contains(strings.ToLower(it.Name), needle) {
				return it, cat.Name, true
			}
		}
	}
	for _, cat := range c.categories {
		for _, it := range cat.Items {
			if strings.Contains(needle, strings.ToLower(it.Name)) {
				return it, cat.Name, true
			}
		}
	}
	return Item{}, "", false
}

// Search returns items whose name or description contains the query,
// case-insensitive, in declaration order.
func (c *Catalog) Search(query string) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var matches []Match
	for _, cat := range c.categories {
		for _, it := range cat.Items {
			if strings.Contains(strings.ToLower(it.Name), q) ||
				strings.Contains(strings.ToLower(it.Description), q) {
				matches = append(matches, Match{Category: cat.Name, Item: it})
			}
		}
	}
	return matches
}

// ==========================
// Rendering
// ==========================

func allergenSuffix(allergens []string) string {
	if len(allergens) == 0 {
		return " (No allergens)"
	}
	return fmt.Sprintf(" (Contains: %s)", strings.Join(allergens, ", "))
}

// RenderCategory formats one category for the prompt context. Unknown
// categories yield a guidance message naming the valid categories, never an
// error.
func (c *Catalog) RenderCategory(name string) string {
	cat, ok := c.Category(name)
	if !ok {
		return fmt.Sprintf("Sorry, we don't have a '%s' category. Our categories are: %s",
			name, strings.Join(c.CategoryNames(), ", "))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", strings.ToUpper(cat.Name))
	for _, it := range cat.Items {
		fmt.Fprintf(&sb, "• %s - $%s\n  %s%s\n\n", it.Name, it.Price.StringFixed(2), it.Description, allergenSuffix(it.Allergens))
	}
	return strings.TrimSpace(sb.String())
}

// RenderFullMenu formats every category in declaration order.
func (c *Catalog) RenderFullMenu() string {
	var sb strings.Builder
	sb.WriteString("Our Complete Menu:\n")
	for _, cat := range c.categories {
		fmt.Fprintf(&sb, "\n%s:\n", strings.ToUpper(cat.Name))
		for _, it := range cat.Items {
			fmt.Fprintf(&sb, "• %s - $%s\n  %s%s\n", it.Name, it.Price.StringFixed(2), it.Description, allergenSuffix(it.Allergens))
		}
	}
	return sb.String()
}

// RenderSearch formats search results, or an apology when nothing matched.
func (c *Catalog) RenderSearch(query string) string {
	matches := c.Search(query)
	if len(matches) == 0 {
		return fmt.Sprintf("Sorry, I couldn't find any items matching '%s'. Would you like to see our full menu?", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Here are items matching '%s':\n", query)
	for _, m := range matches {
		fmt.Fprintf(&sb, "• %s - $%s (%s)\n  %s%s\n\n", m.Item.Name, m.Item.Price.StringFixed(2), m.Category, m.Item.Description, allergenSuffix(m.Item.Allergens))
	}
	return strings.TrimSpace(sb.String())
}

// RenderInfo formats the restaurant information block.
func (c *Catalog) RenderInfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Welcome to %s!\n%s\n\n", c.info.Name, c.info.Tagline)
	fmt.Fprintf(&sb, "Address: %s\n", c.info.Address)
	fmt.Fprintf(&sb, "Phone: %s\n", c.info.Phone)
	fmt.Fprintf(&sb, "Website: %s\n\n", c.info.Website)
	sb.WriteString("Hours:\n")
	for _, h := range c.info.Hours {
		fmt.Fprintf(&sb, "• %s: %s\n", h.Day, h.Hours)
	}
	fmt.Fprintf(&sb, "\nOur Specialties:\n%s\n\nPolicies:\n", strings.Join(c.info.Specialties, ", "))
	for _, p := range c.info.Policies {
		fmt.Fprintf(&sb, "• %s\n", p)
	}
	return strings.TrimSpace(sb.String())
}
