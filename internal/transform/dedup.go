package transform

import "time"

// LatestByKey collapses items sharing a key down to the one with the
// greatest event time. On equal times the later item in stream order
// wins. Input order is otherwise preserved by first appearance of each
// key.
func LatestByKey[T any](items []T, key func(T) string, eventTime func(T) time.Time) []T {
	index := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if i, seen := index[k]; seen {
			if !eventTime(item).Before(eventTime(out[i])) {
				out[i] = item
			}
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}
