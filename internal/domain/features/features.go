// Package features maps heterogeneous request attributes into the
// fixed-order numeric vector expected by the predictors.
package features

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultFeatures is the ordered feature list used when the predictor
// registry ships no metadata of its own. Order is load-bearing: predictors
// are trained against exactly this layout.
var DefaultFeatures = []string{
	"square_feet",
	"building_age",
	"num_floors",
	"occupancy_rate",
	"walk_score",
	"transit_score",
	"crime_rate",
	"school_rating",
	"distance_to_downtown",
	"annual_revenue",
	"expenses",
	"cap_rate",
	"net_operating_income",
}

// defaultAliases maps legacy feature names to the attribute actually carried
// by requests.
var defaultAliases = map[string]string{
	"expenses": "annual_expenses",
}

// defaultValues substitutes documented defaults for missing attributes.
// Features without a rule default to 0.
var defaultValues = map[string]float64{
	"crime_rate":                 50,
	"school_rating":              7,
	"walk_score":                 70,
	"transit_score":              60,
	"building_age":               10,
	"distance_to_highway":        2,
	"distance_to_public_transit": 1,
}

// Normalizer builds feature vectors in a deterministic order.
type Normalizer struct {
	features []string
	aliases  map[string]string
	defaults map[string]float64
}

// NewNormalizer creates a Normalizer with configuration options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		features: DefaultFeatures,
		aliases:  defaultAliases,
		defaults: defaultValues,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Features returns a copy of the configured feature order.
func (n *Normalizer) Features() []string {
	out := make([]string, len(n.features))
	copy(out, n.features)
	return out
}

// Vector resolves each configured feature against attrs: alias first, then
// the attribute itself, then the documented default. A present but
// non-numeric value is a hard error and is never silently defaulted.
func (n *Normalizer) Vector(attrs map[string]any) ([]float64, error) {
	vec := make([]float64, len(n.features))
	for i, feature := range n.features {
		field := feature
		if alias, ok := n.aliases[feature]; ok {
			field = alias
		}

		raw, present := attrs[field]
		if !present {
			vec[i] = n.defaults[feature] // zero when no rule exists
			continue
		}

		v, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %q: %v", ErrInvalidFeatureValue, feature, err)
		}
		vec[i] = v
	}
	return vec, nil
}

// DefaultFor exposes the documented default for a feature name.
func (n *Normalizer) DefaultFor(feature string) float64 {
	return n.defaults[feature]
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to float", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to float", v)
	}
}
