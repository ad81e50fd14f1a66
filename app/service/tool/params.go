package tool

import "strings"

func stringParam(params map[string]any, key string) string {
	value, ok := params[key]
	if !ok {
		return ""
	}

	text, ok := value.(string)
	if !ok {
		return ""
	}

	return strings.TrimSpace(text)
}

// intSliceParam tolerates both []int and the []any/float64 shape produced
// by decoding model JSON.
func intSliceParam(params map[string]any, key string) []int {
	value, ok := params[key]
	if !ok {
		return nil
	}

	switch typed := value.(type) {
	case []int:
		return typed
	case []any:
		result := make([]int, 0, len(typed))
		for _, item := range typed {
			switch number := item.(type) {
			case float64:
				result = append(result, int(number))
			case int:
				result = append(result, number)
			}
		}
		return result
	default:
		return nil
	}
}
