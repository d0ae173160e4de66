package waste

// Category is one of the fixed set of waste labels the classifier may
// return. The same set feeds the Gemini prompt, the reconciler and the
// disposal guide table so the three cannot drift apart.
type Category string

const (
	CategoryRecyclablePlastic Category = "Recyclable Plastic"
	CategoryPaperCardboard    Category = "Paper & Cardboard"
	CategoryOrganicCompost    Category = "Organic/Compost"
	CategoryHazardous         Category = "Hazardous Waste"
	CategoryNonRecyclable     Category = "Non-Recyclable"
	CategoryMetalGlass        Category = "Metal & Glass"
	CategoryEWaste            Category = "E-Waste"
	CategoryUnknown           Category = "Unknown"
)

var allCategories = []Category{
	CategoryRecyclablePlastic,
	CategoryPaperCardboard,
	CategoryOrganicCompost,
	CategoryHazardous,
	CategoryNonRecyclable,
	CategoryMetalGlass,
	CategoryEWaste,
	CategoryUnknown,
}

// Categories returns the full category set in canonical order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// CategoryNames returns the category set as plain strings.
func CategoryNames() []string {
	names := make([]string, len(allCategories))
	for i, c := range allCategories {
		names[i] = string(c)
	}
	return names
}

// ParseCategory maps a raw label onto the closed set. Anything the set does
// not contain maps to Unknown, with ok reporting whether the label matched.
func ParseCategory(raw string) (Category, bool) {
	for _, c := range allCategories {
		if string(c) == raw {
			return c, true
		}
	}
	return CategoryUnknown, false
}
