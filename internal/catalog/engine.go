package catalog

// Result is one page of a filtered dataset.
type Result struct {
	Items      []Entity `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
	TotalItems int      `json:"total_items"`
}

// Filter returns the entities matching criteria, in dataset order.
// The category must match a tag exactly; a non-empty term must be a
// case-insensitive substring of the name or of any trait.
func Filter(dataset []Entity, criteria Criteria) []Entity {
	criteria = criteria.Normalize()

	filtered := make([]Entity, 0, len(dataset))
	for _, e := range dataset {
		if criteria.Category != AllCategories && !e.HasCategory(criteria.Category) {
			continue
		}
		if criteria.Term != "" && !e.matchesTerm(criteria.Term) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// PageCount returns ceil(total/size), 0 for an empty list.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Paginate returns the 1-based page of list. Pages outside the list are empty;
// the page number is not clamped.
func Paginate(list []Entity, page, size int) []Entity {
	if page < 1 || size <= 0 {
		return []Entity{}
	}

	start := (page - 1) * size
	if start >= len(list) {
		return []Entity{}
	}
	end := min(start+size, len(list))

	return list[start:end:end]
}

// ClampPage keeps page within [1, max(1, totalPages)].
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Query filters dataset and slices out one page. It does not validate page;
// callers clamp with ClampPage.
func Query(dataset []Entity, criteria Criteria, page, size int) Result {
	return Page(Filter(dataset, criteria), page, size)
}

// Page slices an already filtered list, for callers that cache the filter result.
func Page(filtered []Entity, page, size int) Result {
	return Result{
		Items:      Paginate(filtered, page, size),
		Page:       page,
		PageSize:   size,
		TotalPages: PageCount(len(filtered), size),
		TotalItems: len(filtered),
	}
}
