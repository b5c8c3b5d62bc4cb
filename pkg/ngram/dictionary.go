package ngram

import "github.com/Sumatoshi-tech/textfang/pkg/table"

// Dictionary assigns stable integer identifiers to n-gram strings in
// insertion order. One dictionary serves an entire run; every strategy
// folds into the same instance so chunking the input never partitions the
// identifier space. Not safe for concurrent use; the engine is
// single-threaded by design.
type Dictionary struct {
	ids     map[string]int64
	ordered []string
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{ids: make(map[string]int64)}
}

// ID returns the identifier for s, assigning the next one on first
// observation.
func (d *Dictionary) ID(s string) int64 {
	if id, ok := d.ids[s]; ok {
		return id
	}

	id := int64(len(d.ordered))
	d.ids[s] = id
	d.ordered = append(d.ordered, s)

	return id
}

// Lookup returns the identifier for s without assigning one.
func (d *Dictionary) Lookup(s string) (int64, bool) {
	id, ok := d.ids[s]

	return id, ok
}

// Len returns the number of distinct strings observed.
func (d *Dictionary) Len() int {
	return len(d.ordered)
}

// Strings returns a copy of the observed strings in identifier order.
func (d *Dictionary) Strings() []string {
	out := make([]string, len(d.ordered))
	copy(out, d.ordered)

	return out
}

// Table returns the (ngram_id, ngram) mapping as a table, ordered by id.
func (d *Dictionary) Table() *table.Table {
	ids := make([]int64, len(d.ordered))
	for i := range d.ordered {
		ids[i] = int64(i)
	}

	t, _ := table.New(
		table.Int64Column(ColNgramID, ids),
		table.StringColumn(ColNgram, d.Strings()),
	)

	return t
}
