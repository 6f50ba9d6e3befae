package tour

import "sort"

// ResolveI18n picks a localized string: requested language, then "en",
// then the first available entry in key order.
func ResolveI18n(m map[string]string, lang string) string {
	if len(m) == 0 {
		return ""
	}
	if v := m[lang]; v != "" {
		return v
	}
	if v := m["en"]; v != "" {
		return v
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return m[keys[0]]
}
