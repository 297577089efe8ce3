package jsontok

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Root is the index of the top-level value of every Document.
const Root = 0

// Document is a tokenized JSON value. Token indices are plain ints; -1 never
// names a token.
type Document struct {
	data   []byte
	tokens []Token
}

// Len reports the number of tokens in the document.
func (d *Document) Len() int {
	return len(d.tokens)
}

// Token returns the token at idx.
func (d *Document) Token(idx int) (Token, bool) {
	if idx < 0 || idx >= len(d.tokens) {
		return Token{}, false
	}
	return d.tokens[idx], true
}

// Kind returns the kind of idx, or KindInvalid when idx is out of range.
func (d *Document) Kind(idx int) Kind {
	tok, ok := d.Token(idx)
	if !ok {
		return KindInvalid
	}
	return tok.Kind
}

// Raw returns the bytes of idx's value. Strings are returned with quotes.
func (d *Document) Raw(idx int) []byte {
	tok, ok := d.Token(idx)
	if !ok {
		return nil
	}
	if tok.Kind == KindString {
		return d.data[tok.Start-1 : tok.End+1]
	}
	return d.data[tok.Start:tok.End]
}

// Find returns the value token of member key in object parent. Only direct
// members are examined; nested objects are skipped without being scanned.
func (d *Document) Find(parent int, key string) (int, bool) {
	tok, ok := d.Token(parent)
	if !ok || tok.Kind != KindObject {
		return -1, false
	}
	i := parent + 1
	for n := 0; n < tok.Size(); n++ {
		k, v := i, i+1
		if d.keyEquals(k, key) {
			return v, true
		}
		i = d.tokens[v].Next
	}
	return -1, false
}

// Index returns the n-th element of array parent.
func (d *Document) Index(parent, n int) (int, bool) {
	tok, ok := d.Token(parent)
	if !ok || tok.Kind != KindArray || n < 0 || n >= tok.Size() {
		return -1, false
	}
	i := parent + 1
	for ; n > 0; n-- {
		i = d.tokens[i].Next
	}
	return i, true
}

// Elements returns the indices of every element of array parent.
func (d *Document) Elements(parent int) []int {
	tok, ok := d.Token(parent)
	if !ok || tok.Kind != KindArray {
		return nil
	}
	out := make([]int, 0, tok.Size())
	i := parent + 1
	for n := 0; n < tok.Size(); n++ {
		out = append(out, i)
		i = d.tokens[i].Next
	}
	return out
}

// Size returns the member or element count of a container token.
func (d *Document) Size(idx int) int {
	tok, ok := d.Token(idx)
	if !ok {
		return 0
	}
	return tok.Size()
}

// Number interprets idx as a JSON number.
func (d *Document) Number(idx int) (float64, bool) {
	tok, ok := d.Token(idx)
	if !ok || tok.Kind != KindPrimitive {
		return 0, false
	}
	raw := d.data[tok.Start:tok.End]
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Text interprets idx as a JSON string, decoding escapes.
func (d *Document) Text(idx int) (string, bool) {
	tok, ok := d.Token(idx)
	if !ok || tok.Kind != KindString {
		return "", false
	}
	if !tok.escaped {
		return string(d.data[tok.Start:tok.End]), true
	}
	var s string
	if err := json.Unmarshal(d.data[tok.Start-1:tok.End+1], &s); err != nil {
		return "", false
	}
	return s, true
}

// Path follows a chain of object keys from parent.
func (d *Document) Path(parent int, keys ...string) (int, bool) {
	idx := parent
	for _, k := range keys {
		var ok bool
		if idx, ok = d.Find(idx, k); !ok {
			return -1, false
		}
	}
	return idx, true
}

// NumberField reads member primary of parent as a number, falling back to
// member fallback when primary is missing or not a number. An empty fallback
// disables the second lookup.
func (d *Document) NumberField(parent int, primary, fallback string) (float64, bool) {
	if idx, ok := d.Find(parent, primary); ok {
		if v, ok := d.Number(idx); ok {
			return v, true
		}
	}
	if fallback == "" {
		return 0, false
	}
	idx, ok := d.Find(parent, fallback)
	if !ok {
		return 0, false
	}
	return d.Number(idx)
}

// StringField is NumberField for strings.
func (d *Document) StringField(parent int, primary, fallback string) (string, bool) {
	if idx, ok := d.Find(parent, primary); ok {
		if v, ok := d.Text(idx); ok {
			return v, true
		}
	}
	if fallback == "" {
		return "", false
	}
	idx, ok := d.Find(parent, fallback)
	if !ok {
		return "", false
	}
	return d.Text(idx)
}

// ContainerField returns member primary of parent when it has kind want,
// else member fallback when that has kind want.
func (d *Document) ContainerField(parent int, want Kind, primary, fallback string) (int, bool) {
	if idx, ok := d.Find(parent, primary); ok && d.Kind(idx) == want {
		return idx, true
	}
	if fallback == "" {
		return -1, false
	}
	if idx, ok := d.Find(parent, fallback); ok && d.Kind(idx) == want {
		return idx, true
	}
	return -1, false
}

func (d *Document) keyEquals(idx int, key string) bool {
	tok := d.tokens[idx]
	if tok.Kind != KindString {
		return false
	}
	if !tok.escaped {
		return bytes.Equal(d.data[tok.Start:tok.End], []byte(key))
	}
	s, ok := d.Text(idx)
	return ok && s == key
}

// Compact appends idx's value to dst with insignificant whitespace removed.
func (d *Document) Compact(dst *bytes.Buffer, idx int) error {
	raw := d.Raw(idx)
	if raw == nil {
		return ErrMalformed
	}
	return json.Compact(dst, raw)
}
