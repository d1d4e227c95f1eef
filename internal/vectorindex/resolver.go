package vectorindex

import "os"

// ResolveVariant picks the on-disk variant for path: an existing portable
// file (identified by its version/dimension/count header prefix existing at
// all) keeps using the portable variant; an existing native file (its
// ".meta" sibling) keeps using native; otherwise preferred is used for a
// fresh index. Platforms lacking native bindings should pass
// VariantPortable as preferred.
func ResolveVariant(path string, preferred Variant) Variant {
	if fileExists(path + ".meta") {
		return VariantNative
	}
	if fileExists(path) {
		return VariantPortable
	}
	return preferred
}

// Open creates or loads an index of the resolved variant at path for the
// given dimension. A non-existent path yields an empty index of the
// resolved/preferred variant.
func Open(path string, dimension int, preferred Variant) (Index, error) {
	variant := ResolveVariant(path, preferred)

	switch variant {
	case VariantNative:
		idx := NewNative(dimension)
		if fileExists(path + ".meta") {
			if err := idx.Load(path); err != nil {
				return nil, err
			}
		}
		return idx, nil
	default:
		idx := NewPortable(dimension)
		if fileExists(path) {
			if err := idx.Load(path); err != nil {
				return nil, err
			}
		}
		return idx, nil
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
