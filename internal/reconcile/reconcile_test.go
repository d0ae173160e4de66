package reconcile

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/wastewise/internal/waste"
)

const validReply = `{
	"item_name": "Plastic Water Bottle",
	"category": "Recyclable Plastic",
	"confidence": 0.95,
	"subcategory": "PET Plastic",
	"recyclable": true,
	"disposal_steps": ["Remove cap", "Rinse bottle", "Place in blue bin"],
	"bin_color": "BLUE",
	"environmental_impact": {
		"co2_saved_kg": 1.2,
		"decomposition_time": "450 years",
		"recycling_potential": "Can be recycled 7+ times"
	},
	"additional_tips": ["Buy a reusable bottle"],
	"warnings": [],
	"alternatives": "Use a refillable bottle"
}`

func TestReconcileParsesValidReply(t *testing.T) {
	r := New(zap.NewNop())

	outcome := r.Reconcile(validReply)
	if outcome.Fallback {
		t.Fatal("expected parsed result, got fallback")
	}

	result := outcome.Result
	if result.ItemName != "Plastic Water Bottle" {
		t.Errorf("unexpected item name: %s", result.ItemName)
	}
	if result.Category != waste.CategoryRecyclablePlastic {
		t.Errorf("unexpected category: %s", result.Category)
	}
	if result.Confidence != 0.95 {
		t.Errorf("unexpected confidence: %f", result.Confidence)
	}
	// base 50 + confidence 10 + recyclable 20
	if result.PointsEarned != 80 {
		t.Errorf("expected 80 points, got %d", result.PointsEarned)
	}
	if len(result.DisposalSteps) != 3 || result.DisposalSteps[0] != "Remove cap" {
		t.Errorf("model disposal steps should win, got %v", result.DisposalSteps)
	}
}

func TestReconcileStripsCodeFences(t *testing.T) {
	r := New(zap.NewNop())

	plain := r.Reconcile(validReply)
	fenced := r.Reconcile("```json\n" + validReply + "\n```")
	bare := r.Reconcile("Here you go:\n```\n" + validReply + "\n```")

	for name, outcome := range map[string]Outcome{"json fence": fenced, "bare fence": bare} {
		if outcome.Fallback {
			t.Fatalf("%s: expected parsed result, got fallback", name)
		}
		if outcome.Result.ItemName != plain.Result.ItemName ||
			outcome.Result.Confidence != plain.Result.Confidence ||
			outcome.Result.PointsEarned != plain.Result.PointsEarned {
			t.Errorf("%s: fenced result differs from plain result", name)
		}
	}
}

func TestReconcileFallbackOnUnparseableText(t *testing.T) {
	r := New(zap.NewNop())
	raw := "I think this might be a bottle, but I'm not sure." + strings.Repeat(" padding", 100)

	outcome := r.Reconcile(raw)
	if !outcome.Fallback {
		t.Fatal("expected fallback outcome")
	}

	result := outcome.Result
	if result.ItemName != "Unknown Item" {
		t.Errorf("unexpected item name: %s", result.ItemName)
	}
	if result.Category != waste.CategoryUnknown {
		t.Errorf("unexpected category: %s", result.Category)
	}
	if result.Confidence != 0.3 {
		t.Errorf("unexpected confidence: %f", result.Confidence)
	}
	if result.BinColor != "GREY" {
		t.Errorf("unexpected bin color: %s", result.BinColor)
	}
	if len(result.RawModelResponse) > 500 {
		t.Errorf("raw response not truncated: %d chars", len(result.RawModelResponse))
	}
	if !strings.HasPrefix(raw, result.RawModelResponse) {
		t.Error("raw response should be a prefix of the original text")
	}
	if result.EnvironmentalImpact.CO2SavedKg != 0 {
		t.Errorf("fallback impact should be zeroed, got %f", result.EnvironmentalImpact.CO2SavedKg)
	}
}

func TestReconcileFallbackOnMissingRequiredFields(t *testing.T) {
	r := New(zap.NewNop())

	cases := map[string]string{
		"missing item_name":  `{"category": "E-Waste", "confidence": 0.9}`,
		"missing category":   `{"item_name": "Phone", "confidence": 0.9}`,
		"missing confidence": `{"item_name": "Phone", "category": "E-Waste"}`,
		"null item_name":     `{"item_name": null, "category": "E-Waste", "confidence": 0.9}`,
		"null category":      `{"item_name": "Phone", "category": null, "confidence": 0.9}`,
		"null confidence":    `{"item_name": "Phone", "category": "E-Waste", "confidence": null}`,
	}
	for name, reply := range cases {
		if outcome := r.Reconcile(reply); !outcome.Fallback {
			t.Errorf("%s: expected fallback", name)
		}
	}
}

func TestFallbackTruncationKeepsValidUTF8(t *testing.T) {
	r := New(zap.NewNop())

	// 498 ASCII bytes followed by three-byte runes, so the 500-byte cap
	// would land mid-rune without boundary handling.
	raw := strings.Repeat("a", 498) + strings.Repeat("日", 10)
	outcome := r.Reconcile(raw)
	if !outcome.Fallback {
		t.Fatal("expected fallback outcome")
	}

	attached := outcome.Result.RawModelResponse
	if len(attached) > 500 {
		t.Errorf("raw response not truncated: %d bytes", len(attached))
	}
	if !utf8.ValidString(attached) {
		t.Error("truncated raw response is not valid UTF-8")
	}
	if !strings.HasPrefix(raw, attached) {
		t.Error("raw response should be a prefix of the original text")
	}
}

func TestReconcileCoercesUnknownCategory(t *testing.T) {
	r := New(zap.NewNop())

	outcome := r.Reconcile(`{"item_name": "Thing", "category": "Space Debris", "confidence": 0.8}`)
	if outcome.Fallback {
		t.Fatal("unexpected fallback")
	}
	if outcome.Result.Category != waste.CategoryUnknown {
		t.Errorf("expected Unknown, got %s", outcome.Result.Category)
	}
}

func TestReconcileClampsConfidence(t *testing.T) {
	r := New(zap.NewNop())

	cases := []struct {
		raw  string
		want float64
	}{
		{`1.7`, 1.0},
		{`-3`, 0.0},
		{`"0.75"`, 0.75},
		{`"1.7"`, 1.0},
		{`"very sure"`, 0.5},
		{`true`, 0.5},
	}
	for _, tc := range cases {
		reply := `{"item_name": "Thing", "category": "Non-Recyclable", "confidence": ` + tc.raw + `}`
		outcome := r.Reconcile(reply)
		if outcome.Fallback {
			t.Fatalf("confidence %s: unexpected fallback", tc.raw)
		}
		if outcome.Result.Confidence != tc.want {
			t.Errorf("confidence %s: expected %f, got %f", tc.raw, tc.want, outcome.Result.Confidence)
		}
	}
}

func TestReconcileBackfillsFromGuide(t *testing.T) {
	r := New(zap.NewNop())

	outcome := r.Reconcile(`{"item_name": "Newspaper", "category": "Paper & Cardboard", "confidence": 0.8}`)
	if outcome.Fallback {
		t.Fatal("unexpected fallback")
	}

	result := outcome.Result
	guide, _ := waste.GuideFor(waste.CategoryPaperCardboard)
	if len(result.DisposalSteps) != len(guide.Instructions) {
		t.Errorf("expected guide instructions, got %v", result.DisposalSteps)
	}
	if result.BinColor != guide.BinColor {
		t.Errorf("expected bin color %s, got %s", guide.BinColor, result.BinColor)
	}
	if result.EnvironmentalImpact.CO2SavedKg != guide.CO2SavedPerKg {
		t.Errorf("expected co2 %f, got %f", guide.CO2SavedPerKg, result.EnvironmentalImpact.CO2SavedKg)
	}
	if result.EnvironmentalImpact.DecompositionTime != guide.DecompositionTime {
		t.Errorf("expected decomposition %s, got %s", guide.DecompositionTime, result.EnvironmentalImpact.DecompositionTime)
	}
	if len(result.Examples) == 0 {
		t.Error("expected guide examples to be attached")
	}
}

func TestReconcileModelValuesWinOverGuide(t *testing.T) {
	r := New(zap.NewNop())

	outcome := r.Reconcile(`{
		"item_name": "Newspaper",
		"category": "Paper & Cardboard",
		"confidence": 0.8,
		"disposal_steps": ["Custom step"],
		"bin_color": "YELLOW",
		"environmental_impact": {"co2_saved_kg": 3.5, "decomposition_time": "1 week"}
	}`)
	if outcome.Fallback {
		t.Fatal("unexpected fallback")
	}

	result := outcome.Result
	if len(result.DisposalSteps) != 1 || result.DisposalSteps[0] != "Custom step" {
		t.Errorf("model disposal steps should win, got %v", result.DisposalSteps)
	}
	if result.BinColor != "YELLOW" {
		t.Errorf("model bin color should win, got %s", result.BinColor)
	}
	if result.EnvironmentalImpact.CO2SavedKg != 3.5 {
		t.Errorf("model co2 should win, got %f", result.EnvironmentalImpact.CO2SavedKg)
	}
	if result.EnvironmentalImpact.DecompositionTime != "1 week" {
		t.Errorf("model decomposition should win, got %s", result.EnvironmentalImpact.DecompositionTime)
	}
}

func TestReconcileZeroCO2FromModelIsKept(t *testing.T) {
	r := New(zap.NewNop())

	// An explicit zero is a provided value, not an absent one.
	outcome := r.Reconcile(`{
		"item_name": "Newspaper",
		"category": "Paper & Cardboard",
		"confidence": 0.8,
		"environmental_impact": {"co2_saved_kg": 0}
	}`)
	if outcome.Result.EnvironmentalImpact.CO2SavedKg != 0 {
		t.Errorf("explicit zero co2 should be kept, got %f", outcome.Result.EnvironmentalImpact.CO2SavedKg)
	}
}

func TestStripFencesWithoutFences(t *testing.T) {
	if got := StripFences("  {\"a\": 1}  "); got != `{"a": 1}` {
		t.Errorf("unexpected result: %q", got)
	}
}
