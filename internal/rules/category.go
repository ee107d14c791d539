package rules

import "strings"

// CategoryOther is returned when no keyword matches.
const CategoryOther = "other"

// keywordCategories is checked in order; the first category with a matching keyword wins.
var keywordCategories = []struct {
	category string
	keywords []string
}{
	{"groceries", []string{"grocery", "supermarket", "farmers market", "whole foods", "trader joe", "safeway", "kroger", "aldi"}},
	{"coffee", []string{"starbucks", "coffee", "cafe", "peet", "dunkin"}},
	{"dining", []string{"restaurant", "mcdonald", "burger", "pizza", "grill", "kitchen", "diner", "taco", "sushi"}},
	{"transportation", []string{"uber", "lyft", "gas", "shell", "chevron", "transit", "parking", "metro"}},
	{"entertainment", []string{"netflix", "spotify", "hulu", "cinema", "theater", "disney", "steam"}},
	{"shopping", []string{"amazon", "target", "walmart", "costco", "best buy", "mall", "store"}},
}

// InferCategory guesses a spending category from merchant keywords.
func InferCategory(merchant string) string {
	name := strings.ToLower(merchant)
	for _, entry := range keywordCategories {
		for _, keyword := range entry.keywords {
			if strings.Contains(name, keyword) {
				return entry.category
			}
		}
	}
	return CategoryOther
}
