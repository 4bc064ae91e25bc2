package blacklist

import "encoding/json"

// DecodeSnapshot parses raw into the snapshot shape Store.Load for the
// given Policy variant expects. The propagator holds only a blacklist.Store
// interface value and the raw JSON field from a checkpoint; it calls this
// once to get back a value it can hand to store.Load, without needing to
// know the concrete snapshot struct types (which are unexported here).
func DecodeSnapshot(variant Variant, raw json.RawMessage) (any, error) {
	switch variant {
	case VariantSet:
		var s setSnapshot
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case VariantDict:
		var s dictSnapshot
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case VariantFIFO:
		var s fifoSnapshot
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errUnsupportedSnapshot
	}
}

// Variant names which Store implementation a snapshot belongs to.
type Variant int

const (
	VariantSet Variant = iota
	VariantDict
	VariantFIFO
)

// VariantOf reports which Variant store implements.
func VariantOf(store Store) Variant {
	switch store.(type) {
	case *Set:
		return VariantSet
	case *FIFO:
		return VariantFIFO
	default:
		return VariantDict
	}
}
