package constants

import (
	"strings"
)

// Vocabulary is a closed set of canonical values for an item attribute.
type Vocabulary struct {
	Name   string
	Values []string
}

var (
	Categories = Vocabulary{
		Name:   "Category",
		Values: []string{"Ring", "Band", "Pendant", "Necklace", "Bracelet", "Earring", "Bangle"},
	}
	Metals = Vocabulary{
		Name:   "Metal",
		Values: []string{"G09KT", "G10KT", "G14KT", "G18KT", "PT950", "S925"},
	}
	Tones = Vocabulary{
		Name:   "Tone",
		Values: []string{"Y", "R", "W", "YW", "RW", "RY"},
	}
	StockTypes = Vocabulary{
		Name: "StockType",
		Values: []string{
			"Normal",
			"Studded Gold Jewellery IC",
			"Studded Platinum Jewellery IC",
			"Plain Gold Jewellery IC",
			"Plain Platinum Jewellery IC",
			"Studded Semi Mount Gold Jewellery IC",
			"Studded Silver Jewellery IC",
			"Plain Silver Jewellery IC",
			"Studded Semi Mount Platinum Jewellery IC",
			"Gold Mount Jewellery IC",
			"Studded Combination Jewellery IC",
		},
	}
	MakeTypes = Vocabulary{
		Name:   "MakeType",
		Values: []string{"CNC", "HOLLOW TUBING", "1 PC CAST", "2 PC CAST", "MULTI CAST", "HIP HOP"},
	}
)

// Canonicalize returns the canonical spelling of input when it equals one of the
// vocabulary values ignoring case and surrounding space. Anything else is returned
// unchanged with ok=false; near misses ("14K", "Yellow") are never mapped.
func (v Vocabulary) Canonicalize(input string) (string, bool) {
	normalized := strings.TrimSpace(input)
	if normalized == "" {
		return input, false
	}
	for _, val := range v.Values {
		if strings.EqualFold(normalized, val) {
			return val, true
		}
	}
	return input, false
}

// Quoted renders the vocabulary as a comma separated list of quoted values.
func (v Vocabulary) Quoted() string {
	parts := make([]string, len(v.Values))
	for i, val := range v.Values {
		parts[i] = `"` + val + `"`
	}
	return strings.Join(parts, ", ")
}
