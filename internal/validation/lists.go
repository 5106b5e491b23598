package validation

// ListMessages are the failures reported by StringList for one field
type ListMessages struct {
	Required     string // field absent
	InvalidEntry string // array holds a string that valid rejects
	InvalidKey   string // single string that valid rejects
}

// StringList accepts a non-empty string or a non-empty array of non-empty
// strings, each of which must pass valid. A single string becomes a one
// element list.
func StringList(key string, v any, valid func(string) bool, msgs ListMessages) ([]string, error) {
	if IsNull(v) {
		return nil, &Error{Message: msgs.Required}
	}
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil, Errorf("Array '%s' is empty", key)
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			s, ok := String(item)
			if !ok {
				return nil, Errorf("Array '%s' contains an invalid value, only non-empty strings are allowed", key)
			}
			if !valid(s) {
				return nil, &Error{Message: msgs.InvalidEntry}
			}
			out = append(out, s)
		}
		return out, nil
	}
	s, ok := String(v)
	if !ok {
		return nil, Errorf("Key '%s' must be a non-empty string or string array", key)
	}
	if !valid(s) {
		return nil, &Error{Message: msgs.InvalidKey}
	}
	return []string{s}, nil
}
