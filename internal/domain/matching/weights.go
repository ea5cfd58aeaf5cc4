package matching

import (
	"sort"
	"strconv"
	"strings"
)

// Fixed base-layer blend. Preference weights scale these, they never replace them.
const (
	SkillWeight      = 0.5
	ExperienceWeight = 0.3
	DomainWeight     = 0.2
)

const (
	MinPreferenceWeight = 0.5
	MaxPreferenceWeight = 1.5
)

// Weights maps a base component (skill, experience, domain) to a per-client multiplier.
// A missing key means 1.0.
type Weights map[string]float64

// WeightedFactors lists the components a preference can adjust.
var WeightedFactors = []string{FactorSkill, FactorExperience, FactorDomain}

// DefaultWeights is the documented baseline returned for unknown clients.
func DefaultWeights() Weights {
	return Weights{
		FactorSkill:      1.0,
		FactorExperience: 1.0,
		FactorDomain:     1.0,
	}
}

func (w Weights) Get(name string) float64 {
	if w == nil {
		return 1.0
	}
	v, ok := w[name]
	if !ok {
		return 1.0
	}
	return clampFloat(v, MinPreferenceWeight, MaxPreferenceWeight)
}

func (w Weights) IsDefault() bool {
	for _, f := range WeightedFactors {
		if w.Get(f) != 1.0 {
			return false
		}
	}
	return true
}

func (w Weights) Clone() Weights {
	out := make(Weights, len(WeightedFactors))
	for _, f := range WeightedFactors {
		out[f] = w.Get(f)
	}
	return out
}

// Fingerprint is a stable short form used in result cache keys. Default weights
// fingerprint to "" so hinted and unhinted baseline scores share a cache entry.
func (w Weights) Fingerprint() string {
	if w.IsDefault() {
		return ""
	}
	keys := make([]string, 0, len(WeightedFactors))
	keys = append(keys, WeightedFactors...)
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(w.Get(k), 'f', 4, 64))
	}
	return b.String()
}
