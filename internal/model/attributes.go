package model

// Attribute is a single descriptive field (wave type, swell direction,
// season, rating, ...). The matching engine never inspects these.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Attributes is an order-preserving collection of descriptive fields.
// Order matters for output column stability, so this is a slice rather
// than a map.
type Attributes []Attribute

// Get returns the value for key and whether it is present.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Set replaces the value for key, or appends the pair if key is absent.
func (a *Attributes) Set(key, value string) {
	for i, attr := range *a {
		if attr.Key == key {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attribute{Key: key, Value: value})
}

// Keys returns attribute keys in insertion order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for _, attr := range a {
		keys = append(keys, attr.Key)
	}
	return keys
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	copy(out, a)
	return out
}
