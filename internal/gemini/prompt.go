package gemini

import (
	"fmt"
	"strings"

	"github.com/example/wastewise/internal/waste"
)

// classificationPrompt instructs the model to return only a JSON object in
// the exact schema the reconciler expects, constrained to the closed
// category set. Building it from waste.CategoryNames keeps the prompt and
// the reconciler on the same set.
func classificationPrompt() string {
	categories := strings.Join(waste.CategoryNames(), ", ")

	return fmt.Sprintf(`You are an expert waste management and recycling AI assistant. Analyze this image and identify the waste item.

**YOUR TASK:**
1. Identify the primary waste item in the image
2. Classify it into ONE of these categories: %s
3. Provide disposal instructions
4. Calculate environmental impact

**RESPONSE FORMAT (JSON only):**
{
    "item_name": "specific name of the item (e.g., 'Plastic Water Bottle', 'Banana Peel')",
    "category": "one of: %s",
    "confidence": 0.0-1.0 (your confidence in this classification),
    "subcategory": "specific type (e.g., 'PET Plastic', 'Aluminum Can')",
    "recyclable": true/false,
    "disposal_steps": [
        "Step 1: specific instruction",
        "Step 2: specific instruction",
        "Step 3: specific instruction"
    ],
    "bin_color": "recommended bin color (e.g., BLUE, GREEN, BLACK, RED)",
    "environmental_impact": {
        "co2_saved_kg": 0.0 (if recycled properly),
        "decomposition_time": "time to decompose if sent to landfill",
        "recycling_potential": "can be recycled X times / not recyclable"
    },
    "additional_tips": [
        "helpful tip 1",
        "helpful tip 2"
    ],
    "warnings": [
        "any warnings or important notes"
    ],
    "alternatives": "suggestion for reducing this type of waste in future"
}

**IMPORTANT RULES:**
- Be specific: "Plastic PET bottle" not just "plastic"
- If unsure, use category "Unknown" and confidence < 0.5
- Always provide actionable disposal steps
- Consider local recycling standards
- If multiple items visible, identify the most prominent one
- Return ONLY valid JSON, no additional text

Analyze the image now:`, categories, categories)
}

// educationPrompt asks the model for supplementary facts about a category.
func educationPrompt(category waste.Category) string {
	return fmt.Sprintf(`Provide 3 interesting facts about %s waste and recycling.
Format as JSON:
{
    "facts": ["fact 1", "fact 2", "fact 3"],
    "global_impact": "one sentence about global impact",
    "did_you_know": "interesting statistic or fact"
}`, category)
}
