package category

import "strings"

// Rule maps a keyword found in a product name to a category.
type Rule struct {
	Keyword  string
	Category string
}

// Default is used when no rule matches.
const Default = "other"

// English covers stores with English product names (zara, amazon).
var English = []Rule{
	{"jacket", "jacket"},
	{"shirt", "shirt"},
	{"tee", "shirt"},
	{"pants", "pants"},
	{"trouser", "pants"},
	{"hoodie", "hoodie"},
}

// Turkish covers mango's Turkish storefront.
var Turkish = []Rule{
	{"ceket", "jacket"},
	{"gömlek", "shirt"},
	{"pantolon", "pants"},
	{"sweatshirt", "sweatshirt"},
	{"mont", "coat"},
}

// Classify returns the category of the first matching rule, checked in
// table order, or Default when nothing matches.
func Classify(name string, rules []Rule) string {
	lower := strings.ToLower(name)
	for _, r := range rules {
		if strings.Contains(lower, r.Keyword) {
			return r.Category
		}
	}
	return Default
}
