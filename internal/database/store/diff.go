package store

import "github.com/mrlokans/readinglist/internal/entities"

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeDelete ChangeType = "delete"
	ChangeUpdate ChangeType = "update"
	ChangeMove   ChangeType = "move"
)

// Change describes one row of a results diff. OldIndex is -1 for inserts and
// NewIndex is -1 for deletes.
type Change struct {
	Type     ChangeType         `json:"type"`
	OldIndex int                `json:"old_index"`
	NewIndex int                `json:"new_index"`
	Item     entities.SavedItem `json:"item"`
}

// ChangeBatch is what a results controller publishes after a commit. Items is
// the full result set the changes lead to.
type ChangeBatch struct {
	Changes []Change             `json:"changes"`
	Items   []entities.SavedItem `json:"items"`
}

// Diff compares two result sets by saved item ID. Deletes come first, then
// inserts, then moves and updates. An item whose position relative to the
// other surviving items changed is a move; a move that also carries a new
// revision is reported only as a move, with the new value.
func Diff(before, after []entities.SavedItem) []Change {
	oldIdx := make(map[string]int, len(before))
	for i, it := range before {
		oldIdx[it.ID] = i
	}
	newIdx := make(map[string]int, len(after))
	for i, it := range after {
		newIdx[it.ID] = i
	}

	var changes []Change
	var oldCommon []string
	for i, it := range before {
		if _, ok := newIdx[it.ID]; !ok {
			changes = append(changes, Change{Type: ChangeDelete, OldIndex: i, NewIndex: -1, Item: it.Clone()})
			continue
		}
		oldCommon = append(oldCommon, it.ID)
	}

	var newCommon []string
	for i, it := range after {
		if _, ok := oldIdx[it.ID]; !ok {
			changes = append(changes, Change{Type: ChangeInsert, OldIndex: -1, NewIndex: i, Item: it.Clone()})
			continue
		}
		newCommon = append(newCommon, it.ID)
	}

	oldRank := make(map[string]int, len(oldCommon))
	for r, id := range oldCommon {
		oldRank[id] = r
	}
	for r, id := range newCommon {
		o, n := oldIdx[id], newIdx[id]
		switch {
		case oldRank[id] != r:
			changes = append(changes, Change{Type: ChangeMove, OldIndex: o, NewIndex: n, Item: after[n].Clone()})
		case before[o].Revision != after[n].Revision:
			changes = append(changes, Change{Type: ChangeUpdate, OldIndex: o, NewIndex: n, Item: after[n].Clone()})
		}
	}
	return changes
}
