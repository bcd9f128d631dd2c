package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := Load()
	require.NoError(t, err)
	return catalog
}

func TestLoad_EmbeddedCatalog(t *testing.T) {
	catalog := loadCatalog(t)

	assert.Equal(t, "Bella Vista Ristorante", catalog.Info().Name)
	assert.Equal(t, []string{"appetizers", "pasta", "pizza", "mains", "desserts", "beverages"}, catalog.CategoryNames())
}

func TestLoadFrom_RejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{{{`},
		{name: "missing categories", raw: `{"restaurant":{"name":"x","address":"y","phone":"z","hours":[]}}`},
		{
			name: "unknown category name",
			raw: `{"restaurant":{"name":"x","address":"y","phone":"z","hours":[]},
				"categories":[{"name":"sushi","items":[]}]}`,
		},
		{
			name: "zero price",
			raw: `{"restaurant":{"name":"x","address":"y","phone":"z","hours":[]},
				"categories":[{"name":"pizza","items":[{"name":"Freebie","price":0,"description":"d","allergens":[]}]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestCategory_Lookup(t *testing.T) {
	catalog := loadCatalog(t)

	cat, ok := catalog.Category("pizza")
	require.True(t, ok)
	assert.Len(t, cat.Items, 4)
	assert.Equal(t, "Margherita", cat.Items[0].Name)

	_, ok = catalog.Category("drinks-xyz")
	assert.False(t, ok)
}

func TestFindItem(t *testing.T) {
	catalog := loadCatalog(t)

	tests := []struct {
		candidate    string
		wantItem     string
		wantCategory string
		wantOK       bool
	}{
		{candidate: "tiramisu", wantItem: "Tiramisu", wantCategory: "desserts", wantOK: true},
		{candidate: "MARGHERITA", wantItem: "Margherita", wantCategory: "pizza", wantOK: true},
		// The candidate may carry trailing words around the item name.
		{candidate: "margherita pizza", wantItem: "Margherita", wantCategory: "pizza", wantOK: true},
		{candidate: "cappuccino please", wantItem: "Cappuccino", wantCategory: "beverages", wantOK: true},
		// Partial names resolve through the contains pass.
		{candidate: "carbonara", wantItem: "Spaghetti Carbonara", wantCategory: "pasta", wantOK: true},
		{candidate: "flying saucer sandwich", wantOK: false},
		{candidate: "   ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			item, category, ok := catalog.FindItem(tt.candidate)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantItem, item.Name)
				assert.Equal(t, tt.wantCategory, category)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	catalog := loadCatalog(t)

	matches := catalog.Search("tomato")
	assert.NotEmpty(t, matches)
	for _, m := range matches {
		assert.NotEmpty(t, m.Category)
	}

	assert.Empty(t, catalog.Search("sushi"))
	assert.Empty(t, catalog.Search("  "))
}

func TestRenderCategory_UnknownNamesCategories(t *testing.T) {
	catalog := loadCatalog(t)

	text := catalog.RenderCategory("drinks-xyz")

	assert.Equal(t,
		"Sorry, we don't have a 'drinks-xyz' category. Our categories are: appetizers, pasta, pizza, mains, desserts, beverages",
		text)
}

func TestRenderCategory_FormatsItems(t *testing.T) {
	catalog := loadCatalog(t)

	text := catalog.RenderCategory("pizza")

	assert.Contains(t, text, "PIZZA:")
	assert.Contains(t, text, "• Margherita - $16.99")
	assert.Contains(t, text, "(Contains: gluten, dairy)")
}

func TestRenderFullMenu_CoversEveryCategory(t *testing.T) {
	catalog := loadCatalog(t)

	text := catalog.RenderFullMenu()

	for _, name := range []string{"APPETIZERS:", "PASTA:", "PIZZA:", "MAINS:", "DESSERTS:", "BEVERAGES:"} {
		assert.Contains(t, text, name)
	}
}

func TestRenderSearch_NoMatches(t *testing.T) {
	catalog := loadCatalog(t)

	text := catalog.RenderSearch("sushi")

	assert.Contains(t, text, "couldn't find any items matching 'sushi'")
}

func TestRenderInfo(t *testing.T) {
	catalog := loadCatalog(t)

	text := catalog.RenderInfo()

	assert.Contains(t, text, "Bella Vista Ristorante")
	assert.Contains(t, text, "Hours:")
	assert.Contains(t, text, "Our Specialties:")
}
