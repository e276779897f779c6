package coverage

// Dataset maps file keys to coverage records and remembers the order keys
// were first added in.
type Dataset struct {
	keys  []string
	files map[string]FileCoverage
}

// NewDataset creates an empty dataset
func NewDataset() *Dataset {
	return &Dataset{files: make(map[string]FileCoverage)}
}

// Put stores fc under fc.File. Re-putting a key replaces the record but keeps
// its original position.
func (d *Dataset) Put(fc FileCoverage) {
	if _, exists := d.files[fc.File]; !exists {
		d.keys = append(d.keys, fc.File)
	}
	d.files[fc.File] = fc
}

// Get returns the record for key
func (d *Dataset) Get(key string) (FileCoverage, bool) {
	fc, ok := d.files[key]
	return fc, ok
}

// Keys returns the file keys in insertion order
func (d *Dataset) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Files returns all records in insertion order
func (d *Dataset) Files() []FileCoverage {
	out := make([]FileCoverage, 0, len(d.keys))
	for _, k := range d.keys {
		out = append(out, d.files[k])
	}
	return out
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.keys)
}
