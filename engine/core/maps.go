package core

import "github.com/mohae/deepcopy"

// CloneMap returns a deep copy of m. Nil stays nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	copied, ok := deepcopy.Copy(m).(map[string]any)
	if !ok {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return copied
}
