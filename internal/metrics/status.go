package metrics

import "sort"

// StatusBucket is the number of responses seen with one status code.
type StatusBucket struct {
	Code  int
	Count uint64
}

// FlattenStatusBuckets converts a code->count map into rows sorted by
// descending count, then by code for stability.
func FlattenStatusBuckets(buckets map[int]uint64) []StatusBucket {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(buckets))
	for code, count := range buckets {
		rows = append(rows, StatusBucket{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
