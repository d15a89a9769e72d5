// Package optimize implements the range-rationalization engine: it groups
// substitutable product references, weighs their economics, reconstructs the
// margin history, projects forward sales and synthesizes the result into one
// record per group. Every computation here is a pure function of its input
// rows plus a caller-supplied reference time.
package optimize

import (
	"sort"

	"github.com/cbmdev/refopt/internal/domain"
)

// Raw quality sub-classes fused into PM.
const (
	rawQualityPMQ = "PMQ"
	rawQualityPMV = "PMV"
)

// NormalizeQuality maps a raw catalog quality class onto the evaluated one.
// Unknown classes map to the empty string and are dropped by the aggregator.
func NormalizeQuality(raw string) string {
	switch raw {
	case domain.QualityOEM:
		return domain.QualityOEM
	case rawQualityPMQ, rawQualityPMV:
		return domain.QualityPM
	default:
		return ""
	}
}

// AggregateGroups buckets product rows by (grouping id, normalized quality),
// dropping rows with no grouping key or an unknown quality class, and groups
// smaller than minMembers. Output order is deterministic: ascending grouping
// id, OEM before PM.
func AggregateGroups(rows []domain.ProductRef, minMembers int) []domain.Group {
	if minMembers < 1 {
		minMembers = 1
	}

	buckets := make(map[domain.GroupKey][]domain.ProductRef)
	for _, row := range rows {
		if row.GroupingID == 0 {
			continue
		}
		quality := NormalizeQuality(row.RawQuality)
		if quality == "" {
			continue
		}
		key := domain.GroupKey{GroupingID: row.GroupingID, Quality: quality}
		buckets[key] = append(buckets[key], row)
	}

	groups := make([]domain.Group, 0, len(buckets))
	for key, members := range buckets {
		if len(members) < minMembers {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			return members[i].ProductID < members[j].ProductID
		})
		groups = append(groups, domain.Group{Key: key, Members: members})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Key.GroupingID != groups[j].Key.GroupingID {
			return groups[i].Key.GroupingID < groups[j].Key.GroupingID
		}
		return groups[i].Key.Quality < groups[j].Key.Quality
	})

	return groups
}
