package rewrite

// Options is the per-plugin configuration block, as decoded from YAML or TOML.
type Options map[string]any

// Value returns an option value, or the default if not set.
func (o Options) Value(key string, defaultValue any) any {
	if v, ok := o[key]; ok {
		return v
	}
	return defaultValue
}

// String returns a string option, or the default.
func (o Options) String(key, defaultValue string) string {
	if s, ok := o.Value(key, defaultValue).(string); ok {
		return s
	}
	return defaultValue
}

// Bool returns a boolean option, or the default.
func (o Options) Bool(key string, defaultValue bool) bool {
	if b, ok := o.Value(key, defaultValue).(bool); ok {
		return b
	}
	return defaultValue
}

// Int returns an integer option, or the default.
func (o Options) Int(key string, defaultValue int) int {
	switch val := o.Value(key, defaultValue).(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	default:
		return defaultValue
	}
}

// StringSlice returns a string slice option, or the default.
func (o Options) StringSlice(key string, defaultValue []string) []string {
	switch val := o.Value(key, defaultValue).(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// StringMap returns a string-to-string option, or the default. Non-string
// values are skipped.
func (o Options) StringMap(key string, defaultValue map[string]string) map[string]string {
	switch val := o.Value(key, defaultValue).(type) {
	case map[string]string:
		return val
	case map[string]any:
		result := make(map[string]string, len(val))
		for k, item := range val {
			if s, ok := item.(string); ok {
				result[k] = s
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
