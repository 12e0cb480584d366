package order

import "fmt"

// ItemList is the ordered, id-indexed item collection owned by one Order.
// Accessors hand out copies; only the aggregate replaces entries.
type ItemList struct {
	items []Item
	index map[string]int
}

func NewItemList(items ...Item) (ItemList, error) {
	l := ItemList{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		if it.ID == "" {
			return ItemList{}, fmt.Errorf("%w: item id is required", ErrValidation)
		}
		if _, dup := l.index[it.ID]; dup {
			return ItemList{}, fmt.Errorf("%w: duplicate item id %s", ErrValidation, it.ID)
		}
		l.index[it.ID] = len(l.items)
		l.items = append(l.items, it.clone())
	}
	return l, nil
}

func (l ItemList) Len() int { return len(l.items) }

// All returns copies of the items in insertion order.
func (l ItemList) All() []Item {
	out := make([]Item, len(l.items))
	for i, it := range l.items {
		out[i] = it.clone()
	}
	return out
}

// IDs returns item ids in insertion order.
func (l ItemList) IDs() []string {
	out := make([]string, len(l.items))
	for i, it := range l.items {
		out[i] = it.ID
	}
	return out
}

func (l ItemList) Get(id string) (Item, bool) {
	idx, ok := l.index[id]
	if !ok {
		return Item{}, false
	}
	return l.items[idx].clone(), true
}

func (l ItemList) Has(id string) bool {
	_, ok := l.index[id]
	return ok
}

func (l *ItemList) replace(it Item) {
	idx, ok := l.index[it.ID]
	if !ok {
		return
	}
	l.items[idx] = it.clone()
}

func (l ItemList) clone() ItemList {
	c := ItemList{
		items: make([]Item, len(l.items)),
		index: make(map[string]int, len(l.index)),
	}
	for i, it := range l.items {
		c.items[i] = it.clone()
	}
	for k, v := range l.index {
		c.index[k] = v
	}
	return c
}
