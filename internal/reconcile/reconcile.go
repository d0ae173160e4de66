// Package reconcile turns the raw text the model returns into a well-formed
// scan result. The model's output is unreliable prose that usually contains
// JSON; anything that cannot be parsed degrades to a deterministic fallback
// instead of an error, so this boundary never fails a request on its own.
package reconcile

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/wastewise/internal/waste"
)

// rawResponseLimit caps how much of an unparseable reply is attached to the
// fallback result for diagnostics.
const rawResponseLimit = 500

const defaultConfidence = 0.5

// Outcome is the result of reconciling a model reply. Fallback reports that
// the reply could not be parsed and Result carries the synthesized default.
type Outcome struct {
	Result   waste.ScanResult
	Fallback bool
}

// Reconciler parses, validates and merges model replies.
type Reconciler struct {
	logger *zap.Logger
}

// New constructs a Reconciler.
func New(logger *zap.Logger) *Reconciler {
	return &Reconciler{logger: logger.Named("reconciler")}
}

// modelReply mirrors the JSON schema requested from the model. Pointer
// fields distinguish absent from zero-valued; confidence stays raw because
// the model sometimes quotes it.
type modelReply struct {
	ItemName      *string         `json:"item_name"`
	Category      *string         `json:"category"`
	Confidence    json.RawMessage `json:"confidence"`
	Subcategory   string          `json:"subcategory"`
	Recyclable    bool            `json:"recyclable"`
	DisposalSteps []string        `json:"disposal_steps"`
	BinColor      string          `json:"bin_color"`
	Impact        *replyImpact    `json:"environmental_impact"`
	Tips          []string        `json:"additional_tips"`
	Warnings      []string        `json:"warnings"`
	Alternatives  string          `json:"alternatives"`
}

type replyImpact struct {
	CO2SavedKg         *float64 `json:"co2_saved_kg"`
	DecompositionTime  string   `json:"decomposition_time"`
	RecyclingPotential string   `json:"recycling_potential"`
}

// Reconcile parses the model's raw text into a ScanResult, backfilling
// missing fields from the static disposal guide and computing the point
// score. Parse and validation failures return the fallback result; this
// method never returns an error.
func (r *Reconciler) Reconcile(raw string) Outcome {
	text := StripFences(raw)

	var reply modelReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		r.logger.Warn("model reply is not valid JSON", zap.Error(err))
		return fallbackOutcome(raw)
	}
	if reply.ItemName == nil || reply.Category == nil || isAbsent(reply.Confidence) {
		r.logger.Warn("model reply is missing required fields")
		return fallbackOutcome(raw)
	}

	category, known := waste.ParseCategory(*reply.Category)
	if !known {
		r.logger.Warn("unrecognized category from model", zap.String("category", *reply.Category))
	}

	result := waste.ScanResult{
		ItemName:      *reply.ItemName,
		Category:      category,
		Confidence:    parseConfidence(reply.Confidence),
		Subcategory:   reply.Subcategory,
		Recyclable:    reply.Recyclable,
		DisposalSteps: reply.DisposalSteps,
		BinColor:      reply.BinColor,
		Alternatives:  reply.Alternatives,
	}
	if reply.Impact != nil {
		if reply.Impact.CO2SavedKg != nil {
			result.EnvironmentalImpact.CO2SavedKg = *reply.Impact.CO2SavedKg
		}
		result.EnvironmentalImpact.DecompositionTime = reply.Impact.DecompositionTime
		result.EnvironmentalImpact.RecyclingPotential = reply.Impact.RecyclingPotential
	}
	result.AdditionalTips = emptyIfNil(reply.Tips)
	result.Warnings = emptyIfNil(reply.Warnings)

	backfillFromGuide(&result, reply)

	result.PointsEarned = waste.CalculatePoints(result.Confidence, result.Recyclable, result.Category)

	return Outcome{Result: result}
}

// backfillFromGuide fills fields the model left out from the static guide
// for the resolved category. Model-provided values always win.
func backfillFromGuide(result *waste.ScanResult, reply modelReply) {
	guide, ok := waste.GuideFor(result.Category)
	if !ok {
		return
	}
	if len(result.DisposalSteps) == 0 {
		result.DisposalSteps = guide.Instructions
	}
	if result.BinColor == "" {
		result.BinColor = guide.BinColor
	}
	if reply.Impact == nil || reply.Impact.CO2SavedKg == nil {
		result.EnvironmentalImpact.CO2SavedKg = guide.CO2SavedPerKg
	}
	if result.EnvironmentalImpact.DecompositionTime == "" {
		result.EnvironmentalImpact.DecompositionTime = guide.DecompositionTime
	}
	result.Examples = guide.Examples
}

// isAbsent reports whether a raw JSON field was omitted or set to a
// literal null; both count as missing for the required-field check.
func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// parseConfidence accepts a JSON number or a quoted numeric string and
// clamps the value into [0, 1]. Anything non-numeric maps to the default.
func parseConfidence(raw json.RawMessage) float64 {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return defaultConfidence
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return defaultConfidence
		}
		n = parsed
	}
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// StripFences extracts the innermost text of a fenced code block, if the
// text is wrapped in one. Model replies frequently arrive inside markdown
// fences even when asked for bare JSON.
func StripFences(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		start := idx + len("```json")
		if end := strings.Index(text[start:], "```"); end >= 0 {
			return strings.TrimSpace(text[start : start+end])
		}
		return strings.TrimSpace(text[start:])
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		start := idx + len("```")
		if end := strings.Index(text[start:], "```"); end >= 0 {
			return strings.TrimSpace(text[start : start+end])
		}
		return strings.TrimSpace(text[start:])
	}
	return strings.TrimSpace(text)
}

func fallbackOutcome(raw string) Outcome {
	result := fallbackResult(raw)
	result.PointsEarned = waste.CalculatePoints(result.Confidence, result.Recyclable, result.Category)
	return Outcome{Result: result, Fallback: true}
}

// fallbackResult is the deterministic low-confidence result used whenever
// the model's reply cannot be parsed into the expected schema.
func fallbackResult(raw string) waste.ScanResult {
	if len(raw) > rawResponseLimit {
		cut := rawResponseLimit
		// Back up so the cut does not split a multibyte rune.
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}
	return waste.ScanResult{
		ItemName:    "Unknown Item",
		Category:    waste.CategoryUnknown,
		Confidence:  0.3,
		Subcategory: "Unidentified",
		Recyclable:  false,
		DisposalSteps: []string{
			"Unable to identify waste type clearly",
			"Please retake photo with better lighting",
			"Ensure the item is clearly visible",
			"Consult local waste management guidelines",
		},
		BinColor: "GREY",
		EnvironmentalImpact: waste.EnvironmentalImpact{
			CO2SavedKg:         0,
			DecompositionTime:  "Unknown",
			RecyclingPotential: "Unknown",
		},
		AdditionalTips: []string{
			"Try taking a clearer photo",
			"Ensure good lighting",
			"Focus on one item at a time",
		},
		Warnings: []string{
			"Could not identify waste type with high confidence",
		},
		Alternatives:     "Please try scanning again",
		RawModelResponse: raw,
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
