package waste

// DisposalGuide is the static reference entry for a category. The table is
// read-only after process start and is only used to backfill fields the
// model left out.
type DisposalGuide struct {
	BinColor          string   `json:"bin_color"`
	Instructions      []string `json:"instructions"`
	Examples          []string `json:"examples"`
	CO2SavedPerKg     float64  `json:"co2_saved_per_kg"`
	DecompositionTime string   `json:"decomposition_time"`
}

var disposalGuides = map[Category]DisposalGuide{
	CategoryRecyclablePlastic: {
		BinColor: "BLUE",
		Instructions: []string{
			"Remove caps and labels if possible",
			"Rinse clean of food residue",
			"Flatten bottles to save space",
			"Place in blue recycling bin",
		},
		Examples:          []string{"Plastic bottles", "Food containers", "Plastic bags"},
		CO2SavedPerKg:     1.5,
		DecompositionTime: "450 years",
	},
	CategoryPaperCardboard: {
		BinColor: "BLUE",
		Instructions: []string{
			"Keep dry and clean",
			"Flatten cardboard boxes",
			"Remove any plastic tape or stickers",
			"Place in blue recycling bin",
		},
		Examples:          []string{"Newspapers", "Cardboard boxes", "Office paper"},
		CO2SavedPerKg:     0.9,
		DecompositionTime: "2-6 weeks",
	},
	CategoryOrganicCompost: {
		BinColor: "GREEN",
		Instructions: []string{
			"Remove any plastic or packaging",
			"Can mix with yard waste",
			"Keep in green compost bin",
			"Avoid meat and dairy (for home composting)",
		},
		Examples:          []string{"Food scraps", "Fruit peels", "Coffee grounds"},
		CO2SavedPerKg:     0.3,
		DecompositionTime: "2-4 weeks",
	},
	CategoryHazardous: {
		BinColor: "RED",
		Instructions: []string{
			"DO NOT mix with regular trash",
			"Store safely until drop-off",
			"Take to hazardous waste facility",
			"Follow local regulations",
		},
		Examples:          []string{"Batteries", "Paint", "Chemicals", "Fluorescent bulbs"},
		CO2SavedPerKg:     0.0,
		DecompositionTime: "Never decomposes safely",
	},
	CategoryMetalGlass: {
		BinColor: "BLUE",
		Instructions: []string{
			"Rinse containers clean",
			"Remove lids and caps",
			"Can mix metals and glass",
			"Place in blue recycling bin",
		},
		Examples:          []string{"Aluminum cans", "Steel cans", "Glass bottles"},
		CO2SavedPerKg:     2.1,
		DecompositionTime: "Glass: 1M years, Metal: 50-200 years",
	},
	CategoryEWaste: {
		BinColor: "SPECIAL",
		Instructions: []string{
			"Remove batteries if possible",
			"Wipe personal data from devices",
			"Take to e-waste collection center",
			"Check for manufacturer take-back programs",
		},
		Examples:          []string{"Old phones", "Computers", "Cables", "Appliances"},
		CO2SavedPerKg:     1.8,
		DecompositionTime: "Never decomposes, toxic materials",
	},
	CategoryNonRecyclable: {
		BinColor: "BLACK/GREY",
		Instructions: []string{
			"Place in general waste bin",
			"Seal in bag if contaminated",
			"Consider reducing usage of these items",
			"Check if alternative disposal exists",
		},
		Examples:          []string{"Styrofoam", "Dirty plastics", "Mixed materials"},
		CO2SavedPerKg:     0.0,
		DecompositionTime: "Varies, often hundreds of years",
	},
}

// GuideFor looks up the disposal guide for a category. Unknown has no entry.
func GuideFor(category Category) (DisposalGuide, bool) {
	g, ok := disposalGuides[category]
	return g, ok
}
