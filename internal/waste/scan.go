package waste

// EnvironmentalImpact summarizes what proper disposal of the item saves.
type EnvironmentalImpact struct {
	CO2SavedKg         float64 `json:"co2_saved_kg"`
	DecompositionTime  string  `json:"decomposition_time"`
	RecyclingPotential string  `json:"recycling_potential"`
}

// ScanResult is the structured outcome of one scan. It is immutable once
// returned to the caller and is persisted flat under a generated scan id.
type ScanResult struct {
	ScanID                 string              `json:"scan_id,omitempty"`
	ItemName               string              `json:"item_name"`
	Category               Category            `json:"category"`
	Confidence             float64             `json:"confidence"`
	Subcategory            string              `json:"subcategory,omitempty"`
	Recyclable             bool                `json:"recyclable"`
	DisposalSteps          []string            `json:"disposal_steps"`
	BinColor               string              `json:"bin_color"`
	EnvironmentalImpact    EnvironmentalImpact `json:"environmental_impact"`
	Examples               []string            `json:"examples,omitempty"`
	AdditionalTips         []string            `json:"additional_tips"`
	Warnings               []string            `json:"warnings"`
	Alternatives           string              `json:"alternatives,omitempty"`
	PointsEarned           int                 `json:"points_earned"`
	ProcessingTimeSeconds  float64             `json:"processing_time_seconds"`
	Timestamp              string              `json:"timestamp"`
	ImageHash              string              `json:"image_hash,omitempty"`
	RawModelResponse       string              `json:"raw_ai_response,omitempty"`
}
