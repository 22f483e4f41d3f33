package types

// Metadata represents a free-form string key-value map carried on domain
// objects and passed through verbatim to the provider.
type Metadata map[string]string

// Merge returns a copy of m with the entries of other layered on top
func (m Metadata) Merge(other Metadata) Metadata {
	merged := make(Metadata, len(m)+len(other))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
