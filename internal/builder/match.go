package builder

import (
	"slices"
	"strings"

	"github.com/bmd-analytics/reportbuilder/internal/authoring"
	"github.com/bmd-analytics/reportbuilder/internal/catalog"
)

// MatchPages pairs catalog pages with remote pages. A catalog page claims a
// remote page by internal name, then by display name (both
// case-insensitive), then by ordinal position among the remote pages still
// unclaimed. The result is indexed like specs; nil means no counterpart.
func MatchPages(specs []catalog.PageSpec, remote []authoring.Page) []*authoring.Page {
	sorted := slices.Clone(remote)
	slices.SortStableFunc(sorted, func(a, b authoring.Page) int { return a.Ordinal - b.Ordinal })

	matches := make([]*authoring.Page, len(specs))
	claimed := make([]bool, len(sorted))

	claim := func(i int, pick func(authoring.Page) bool) {
		if matches[i] != nil {
			return
		}
		for j := range sorted {
			if !claimed[j] && pick(sorted[j]) {
				claimed[j] = true
				matches[i] = &sorted[j]
				return
			}
		}
	}

	for i, spec := range specs {
		claim(i, func(p authoring.Page) bool {
			return p.Name != "" && strings.EqualFold(p.Name, spec.Name)
		})
	}
	for i, spec := range specs {
		claim(i, func(p authoring.Page) bool {
			return p.DisplayName != "" && strings.EqualFold(p.DisplayName, spec.DisplayName)
		})
	}

	// The k-th unmatched catalog page takes the k-th unclaimed remote page.
	order := make([]int, 0, len(specs))
	for i := range specs {
		if matches[i] == nil {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int { return specs[a].Ordinal - specs[b].Ordinal })
	j := 0
	for _, i := range order {
		for j < len(sorted) && claimed[j] {
			j++
		}
		if j == len(sorted) {
			break
		}
		claimed[j] = true
		matches[i] = &sorted[j]
	}
	return matches
}
