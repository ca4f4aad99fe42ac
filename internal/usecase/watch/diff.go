package watch

import "deltawatch/internal/domain/entity"

// Diff returns the items whose id is not in known, in extraction order, and
// adds their ids to known. An id repeated within items is new at most once.
func Diff(known *entity.KnownSet, items []entity.Item) []entity.Item {
	var fresh []entity.Item
	for _, item := range items {
		if known.Add(item.ID) {
			fresh = append(fresh, item)
		}
	}
	return fresh
}
