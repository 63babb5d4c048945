package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() []Product {
	return []Product{
		{
			ID:    "gid://shopify/Product/1",
			Title: "Coffee Subscription",
			Variants: []Variant{
				{ID: "gid://shopify/ProductVariant/10", Title: "250g / Medium Roast Subscription", ProductTitle: "Coffee Subscription"},
			},
		},
		{
			ID:    "gid://shopify/Product/2",
			Title: "House Blend",
			Variants: []Variant{
				{ID: "gid://shopify/ProductVariant/20", Title: "250g / Light Roast", ProductTitle: "House Blend"},
				{ID: "gid://shopify/ProductVariant/21", Title: "250g / Medium Roast", ProductTitle: "House Blend"},
			},
		},
		{
			ID:    "gid://shopify/Product/3",
			Title: "Single Origin",
			Variants: []Variant{
				{
					ID:           "gid://shopify/ProductVariant/30",
					Title:        "Classic",
					ProductTitle: "Single Origin",
					SelectedOptions: []SelectedOption{
						{Name: "Size", Value: "250g"},
						{Name: "Taste", Value: "Medium Roast"},
					},
				},
			},
		},
	}
}

func TestPickReplacementFirstMatchWins(t *testing.T) {
	m := NewHeuristicMatcher()
	sources := []ReplacementSource{{VariantTitle: "250g / Medium Roast"}}

	got := m.PickReplacement(sources, catalog())
	require.NotNil(t, got)
	// Variant 21 matches first in catalog order; variant 30 also matches
	// via options but comes later, and variant 10 is excluded as a
	// subscription variant.
	assert.Equal(t, "gid://shopify/ProductVariant/21", got.ID)
}

func TestPickReplacementMatchesViaOptions(t *testing.T) {
	m := NewHeuristicMatcher()
	products := catalog()[2:]
	sources := []ReplacementSource{{VariantTitle: "250g / Medium Roast"}}

	got := m.PickReplacement(sources, products)
	require.NotNil(t, got)
	assert.Equal(t, "gid://shopify/ProductVariant/30", got.ID)
}

func TestPickReplacementSkipsSubscriptionTitledCandidates(t *testing.T) {
	m := NewHeuristicMatcher()
	products := catalog()[:1]
	sources := []ReplacementSource{{VariantTitle: "250g / Medium Roast"}}

	assert.Nil(t, m.PickReplacement(sources, products))
}

func TestPickReplacementUsesFirstLineItemOnly(t *testing.T) {
	m := NewHeuristicMatcher()
	sources := []ReplacementSource{
		{VariantTitle: "1kg / Dark Roast"},
		{VariantTitle: "250g / Medium Roast"},
	}

	assert.Nil(t, m.PickReplacement(sources, catalog()), "second item's attributes must not be consulted")
}

func TestPickReplacementMissingTokenNeverMatches(t *testing.T) {
	m := NewHeuristicMatcher()

	// No size token anywhere on the source item.
	sources := []ReplacementSource{{VariantTitle: "Medium Roast"}}
	assert.Nil(t, m.PickReplacement(sources, catalog()))

	// No taste token.
	sources = []ReplacementSource{{VariantTitle: "250g"}}
	assert.Nil(t, m.PickReplacement(sources, catalog()))

	// No sources at all.
	assert.Nil(t, m.PickReplacement(nil, catalog()))
}

func TestPickReplacementReturnsNilWhenNothingMatches(t *testing.T) {
	m := NewHeuristicMatcher()
	sources := []ReplacementSource{{VariantTitle: "500ml / Dark Roast"}}

	assert.Nil(t, m.PickReplacement(sources, catalog()))
}

func TestPickReplacementIsDeterministic(t *testing.T) {
	m := NewHeuristicMatcher()
	sources := []ReplacementSource{{VariantTitle: "250g / Medium Roast"}}

	first := m.PickReplacement(sources, catalog())
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		again := m.PickReplacement(sources, catalog())
		require.NotNil(t, again)
		assert.Equal(t, first.ID, again.ID)
	}
}

func TestExtractTokenUsesOptionsExclusivelyWhenPresent(t *testing.T) {
	src := ReplacementSource{
		VariantTitle: "500ml bottle",
		Options:      []SelectedOption{{Name: "Size", Value: "250g"}},
	}
	assert.Equal(t, "250g", extractToken(sizePattern, src))

	// Options carrying no size token must not fall through to the title.
	src.Options = []SelectedOption{{Name: "Grind", Value: "Whole Bean"}}
	assert.Empty(t, extractToken(sizePattern, src))

	src.Options = nil
	assert.Equal(t, "500ml", extractToken(sizePattern, src))
}

func TestPickReplacementIgnoresTitleWhenOptionsPresent(t *testing.T) {
	m := NewHeuristicMatcher()
	sources := []ReplacementSource{{
		VariantTitle: "250g / Medium Roast",
		Options:      []SelectedOption{{Name: "Grind", Value: "Whole Bean"}},
	}}

	assert.Nil(t, m.PickReplacement(sources, catalog()),
		"tokenless options disqualify the item; the title is not a fallback")
}

func TestTastePatternIncludesRoastSuffix(t *testing.T) {
	src := ReplacementSource{VariantTitle: "Medium Roast"}
	assert.Equal(t, "medium roast", extractToken(tastePattern, src))

	src = ReplacementSource{VariantTitle: "medium"}
	assert.Equal(t, "medium", extractToken(tastePattern, src))
}
