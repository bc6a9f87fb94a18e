package features

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithFeatures sets the ordered feature-name list.
func WithFeatures(names []string) Option {
	return func(n *Normalizer) {
		if len(names) > 0 {
			n.features = names
		}
	}
}

// WithAliases sets the feature-name alias table.
func WithAliases(aliases map[string]string) Option {
	return func(n *Normalizer) {
		if aliases != nil {
			n.aliases = aliases
		}
	}
}

// WithDefaults sets the missing-attribute defaults table.
func WithDefaults(defaults map[string]float64) Option {
	return func(n *Normalizer) {
		if defaults != nil {
			n.defaults = defaults
		}
	}
}
