package config

// Merge returns a new configuration holding base with overrides applied on top.
//
// Nested sections are merged key by key. Any other override value (scalars,
// slices, nil) replaces the base value outright. Keys absent from overrides
// keep their base value. Neither argument is modified.
func Merge(base, overrides Config) Config {
	out := base.Clone()
	if out == nil {
		out = Config{}
	}
	mergeInto(out, overrides)
	return out
}

// mergeInto applies src on top of dst, which must be owned by the caller
func mergeInto(dst, src map[string]any) map[string]any {
	for key, value := range src {
		srcSection, ok := asMap(value)
		if !ok {
			dst[key] = cloneValue(value)
			continue
		}
		if dstSection, ok := asMap(dst[key]); ok {
			dst[key] = mergeInto(dstSection, srcSection)
			continue
		}
		dst[key] = cloneMap(srcSection)
	}
	return dst
}
