package service

import (
	"strings"

	"github.com/cjmurphy27/barn-management-sub000/internal/model"
)

type matchKey struct {
	name     string
	category model.Category
}

func newMatchKey(name, category string) matchKey {
	return matchKey{
		name:     strings.ToLower(strings.TrimSpace(name)),
		category: model.ParseCategory(category),
	}
}

// CatalogIndex is a (name, category) lookup over one catalog snapshot.
// When several records share a key the oldest wins, then the lowest id, so
// the answer never depends on the order the store returned rows in.
type CatalogIndex struct {
	byKey map[matchKey]*model.SupplyRecord
}

func NewCatalogIndex(records []model.SupplyRecord) *CatalogIndex {
	idx := &CatalogIndex{byKey: make(map[matchKey]*model.SupplyRecord, len(records))}
	for i := range records {
		rec := &records[i]
		key := newMatchKey(rec.Name, string(rec.Category))
		if cur, ok := idx.byKey[key]; ok && !precedes(rec, cur) {
			continue
		}
		idx.byKey[key] = rec
	}
	return idx
}

func precedes(a, b *model.SupplyRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Resolve finds the record a line item merges into. It never fails: no
// match simply means the insert path.
func (idx *CatalogIndex) Resolve(description, category string) (*model.SupplyRecord, bool) {
	rec, ok := idx.byKey[newMatchKey(description, category)]
	return rec, ok
}

// Len is the number of distinct match keys.
func (idx *CatalogIndex) Len() int { return len(idx.byKey) }
