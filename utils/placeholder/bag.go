package placeholder

// Bag is an insertion-ordered mapping of field names to resolved values.
// A Bag is owned by one collection run and is not safe for concurrent use.
type Bag struct {
	keys   []string
	values map[string]string
}

// NewBag returns an empty bag.
func NewBag() *Bag {
	return &Bag{values: make(map[string]string)}
}

// Set stores value under key. Re-setting a key keeps its original position.
func (b *Bag) Set(key, value string) {
	if b.values == nil {
		b.values = make(map[string]string)
	}
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
}

// Get returns the value for key and whether it is present.
func (b *Bag) Get(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.values[key]
	return v, ok
}

// Delete removes key so later lookups see it as missing.
func (b *Bag) Delete(key string) {
	if _, ok := b.values[key]; !ok {
		return
	}
	delete(b.values, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (b *Bag) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.keys...)
}

// Len reports the number of keys.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

// Map returns a copy of the bag contents.
func (b *Bag) Map() map[string]string {
	out := make(map[string]string, b.Len())
	if b == nil {
		return out
	}
	for k, v := range b.values {
		out[k] = v
	}
	return out
}
