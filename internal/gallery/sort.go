package gallery

import (
	"sort"
	"strings"

	"ani-canvas-backend/internal/models"
)

// SortAnimations orders the collection in place by the tri-state filter.
// Creation timestamp takes priority over name when both fields are active;
// fields set to NONE never influence the order. The sort is stable, so
// resorting an already-sorted collection is a no-op.
func SortAnimations(animations []models.Animation, filter models.AnimationFilter) {
	sort.SliceStable(animations, func(i, j int) bool {
		a, b := animations[i], animations[j]

		if a.CreatedAt != b.CreatedAt && filter.CreatedAt != models.SortNone {
			if filter.CreatedAt == models.SortAscending {
				return a.CreatedAt < b.CreatedAt
			}
			return a.CreatedAt > b.CreatedAt
		}

		if a.Name != b.Name && filter.Name != models.SortNone {
			if filter.Name == models.SortAscending {
				return strings.Compare(a.Name, b.Name) < 0
			}
			return strings.Compare(a.Name, b.Name) > 0
		}

		return false
	})
}

// PageCount partitions n items into fixed-size pages, never reporting fewer
// than one page.
func PageCount(n, pageSize int) int {
	if pageSize < 1 {
		return 1
	}
	pages := (n + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// PageSlice returns the page-th fixed-size window of the sorted collection.
// Out-of-range pages yield an empty slice.
func PageSlice(animations []models.Animation, page, pageSize int) []models.Animation {
	if page < 0 || pageSize < 1 {
		return []models.Animation{}
	}
	start := page * pageSize
	if start >= len(animations) {
		return []models.Animation{}
	}
	end := start + pageSize
	if end > len(animations) {
		end = len(animations)
	}
	return animations[start:end]
}
