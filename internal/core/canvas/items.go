package canvas

import (
	"errors"
	"slices"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

// AddNote appends a note to a cluster and commits it.
func (b *Board) AddNote(clusterID, text string) (domain.AffinityItem, error) {
	i := indexOf(b.committed, clusterID)
	if i < 0 {
		return domain.AffinityItem{}, clusterNotFound("canvas add note", clusterID)
	}
	item := domain.AffinityItem{ID: b.newID(), Text: text, Type: domain.ItemNote}
	next := domain.CloneClusters(b.committed)
	next[i].Items = append(next[i].Items, item)
	b.commit(next)
	return item, nil
}

// BeginNote opens a text draft for an item. Edits stay local until
// CommitNote.
func (b *Board) BeginNote(clusterID, itemID string) error {
	i := indexOf(b.committed, clusterID)
	if i < 0 {
		return clusterNotFound("canvas edit note", clusterID)
	}
	j := itemIndex(b.committed[i].Items, itemID)
	if j < 0 {
		return itemNotFound("canvas edit note", itemID)
	}
	b.note = &noteDraft{clusterID: clusterID, itemID: itemID, text: b.committed[i].Items[j].Text}
	return nil
}

func (b *Board) UpdateNote(text string) error {
	if b.note == nil {
		return domain.WrapError(domain.ErrInvalidInput, "canvas edit note", errors.New("no note is being edited"))
	}
	b.note.text = text
	return nil
}

// CommitNote persists the draft text. An unchanged draft commits nothing.
func (b *Board) CommitNote() error {
	draft := b.note
	b.note = nil
	if draft == nil {
		return domain.WrapError(domain.ErrInvalidInput, "canvas edit note", errors.New("no note is being edited"))
	}
	i := indexOf(b.committed, draft.clusterID)
	if i < 0 {
		return clusterNotFound("canvas edit note", draft.clusterID)
	}
	j := itemIndex(b.committed[i].Items, draft.itemID)
	if j < 0 {
		return itemNotFound("canvas edit note", draft.itemID)
	}
	if b.committed[i].Items[j].Text == draft.text {
		return nil
	}
	next := domain.CloneClusters(b.committed)
	next[i].Items[j].Text = draft.text
	b.commit(next)
	return nil
}

func (b *Board) CancelNote() {
	b.note = nil
}

// EditNote replaces an item's text in one step.
func (b *Board) EditNote(clusterID, itemID, text string) error {
	if err := b.BeginNote(clusterID, itemID); err != nil {
		return err
	}
	b.note.text = text
	return b.CommitNote()
}

func (b *Board) DeleteNote(clusterID, itemID string) error {
	i := indexOf(b.committed, clusterID)
	if i < 0 {
		return clusterNotFound("canvas delete note", clusterID)
	}
	j := itemIndex(b.committed[i].Items, itemID)
	if j < 0 {
		return itemNotFound("canvas delete note", itemID)
	}
	if b.note != nil && b.note.itemID == itemID {
		b.note = nil
	}
	next := domain.CloneClusters(b.committed)
	next[i].Items = slices.Delete(next[i].Items, j, j+1)
	b.commit(next)
	return nil
}

// MoveItem moves an item within its cluster or into another one. The item is
// inserted before beforeItemID, or appended when beforeItemID is empty or not
// in the target cluster. The move is committed immediately.
func (b *Board) MoveItem(itemID, fromClusterID, toClusterID, beforeItemID string) error {
	from := indexOf(b.committed, fromClusterID)
	if from < 0 {
		return clusterNotFound("canvas move item", fromClusterID)
	}
	to := indexOf(b.committed, toClusterID)
	if to < 0 {
		return clusterNotFound("canvas move item", toClusterID)
	}
	j := itemIndex(b.committed[from].Items, itemID)
	if j < 0 {
		return itemNotFound("canvas move item", itemID)
	}
	if beforeItemID == itemID {
		return nil
	}

	next := domain.CloneClusters(b.committed)
	item := next[from].Items[j]
	next[from].Items = slices.Delete(next[from].Items, j, j+1)

	target := next[to].Items
	pos := len(target)
	if beforeItemID != "" {
		if k := itemIndex(target, beforeItemID); k >= 0 {
			pos = k
		}
	}
	next[to].Items = slices.Insert(target, pos, item)
	b.commit(next)
	return nil
}
