package extraction

import (
	"regexp"
	"strings"
)

// VendorPattern is one vendor's detection signature.
type VendorPattern struct {
	Key      string
	Name     string
	Patterns []*regexp.Regexp
	Weight   int
}

// knownVendors seeds the pattern table with the corpus's literal Sysco
// scenario (§8 end-to-end scenario 4) plus a couple of generic
// food-distribution vendors in the same shape.
var knownVendors = []VendorPattern{
	{
		Key:  "sysco",
		Name: "Sysco Corporation",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bsysco\b`),
			regexp.MustCompile(`(?i)sysco corporation`),
		},
		Weight: 60,
	},
	{
		Key:  "us_foods",
		Name: "US Foods",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bus\s?foods\b`),
		},
		Weight: 55,
	},
	{
		Key:  "performance_food_group",
		Name: "Performance Food Group",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)performance food group`),
			regexp.MustCompile(`(?i)\bpfg\b`),
		},
		Weight: 55,
	},
}

// VendorMatch is the §4.C2 "(vendorKey, name, confidence)" triple.
type VendorMatch struct {
	Key        string
	Name       string
	Confidence int
}

// DetectVendor scores text against each vendor's patterns; a claim
// requires confidence >= 50 (§4.C2 "Parsing stage").
func DetectVendor(text string) *VendorMatch {
	normalized := strings.ToLower(text)
	var best *VendorMatch
	for _, v := range knownVendors {
		hits := 0
		for _, p := range v.Patterns {
			if p.MatchString(normalized) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		confidence := v.Weight
		if hits > 1 {
			confidence += 10 * (hits - 1)
		}
		if confidence > 100 {
			confidence = 100
		}
		if confidence < 50 {
			continue
		}
		if best == nil || confidence > best.Confidence {
			best = &VendorMatch{Key: v.Key, Name: v.Name, Confidence: confidence}
		}
	}
	return best
}
