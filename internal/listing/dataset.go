package listing

// Dataset is an ordered record set keyed by SourceLink.
// It is not safe for concurrent use; the sink that owns it is the single writer.
type Dataset struct {
	records []PropertyRecord
	index   map[string]int
}

// NewDataset returns an empty dataset
func NewDataset() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// Upsert replaces the record with the same SourceLink in place, or appends it.
// It reports whether the record was new.
func (d *Dataset) Upsert(rec PropertyRecord) bool {
	if i, ok := d.index[rec.SourceLink]; ok {
		d.records[i] = rec
		return false
	}
	d.index[rec.SourceLink] = len(d.records)
	d.records = append(d.records, rec)
	return true
}

// Contains reports whether a record with link is present
func (d *Dataset) Contains(link string) bool {
	_, ok := d.index[link]
	return ok
}

// Get returns the record stored for link
func (d *Dataset) Get(link string) (PropertyRecord, bool) {
	i, ok := d.index[link]
	if !ok {
		return PropertyRecord{}, false
	}
	return d.records[i], true
}

// Len returns the number of distinct records
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns a copy of the records in insertion order
func (d *Dataset) Records() []PropertyRecord {
	out := make([]PropertyRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Rows renders every record in Columns order
func (d *Dataset) Rows() [][]string {
	rows := make([][]string, 0, len(d.records))
	for _, r := range d.records {
		rows = append(rows, r.Row())
	}
	return rows
}
