package jsontok

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformed means the input is not a single well-formed JSON value.
	ErrMalformed = errors.New("malformed json")
	// ErrTokenBudget means the document needs more tokens than allowed.
	ErrTokenBudget = errors.New("token budget exhausted")
)

// Tokenizer turns a byte slice into a queryable Document.
type Tokenizer interface {
	Tokenize(data []byte, maxTokens int) (*Document, error)
}

// Parser is the Tokenizer implementation. It owns a token table allocated
// once at construction and reused by every call, so the Document returned by
// Tokenize is only valid until the next call. A Parser is not safe for
// concurrent use.
type Parser struct {
	doc Document
}

// NewParser allocates a parser whose table holds at most capacity tokens.
func NewParser(capacity int) *Parser {
	return &Parser{doc: Document{tokens: make([]Token, 0, capacity)}}
}

// Capacity reports the size of the fixed token table.
func (p *Parser) Capacity() int {
	return cap(p.doc.tokens)
}

// Tokenize scans data into the parser's table. maxTokens is clamped to the
// table capacity.
func (p *Parser) Tokenize(data []byte, maxTokens int) (*Document, error) {
	d := &p.doc
	d.data = nil
	d.tokens = d.tokens[:0]
	if maxTokens <= 0 || maxTokens > cap(d.tokens) {
		maxTokens = cap(d.tokens)
	}
	if !json.Valid(data) {
		return nil, ErrMalformed
	}
	if err := d.scan(data, maxTokens); err != nil {
		d.tokens = d.tokens[:0]
		return nil, err
	}
	d.data = data
	return d, nil
}

// scan assumes data is valid JSON; structural validation already happened.
func (d *Document) scan(data []byte, maxTokens int) error {
	parent := -1
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch c {
		case ' ', '\t', '\r', '\n', ':', ',':
			continue

		case '{', '[':
			kind := KindObject
			if c == '[' {
				kind = KindArray
			}
			idx, err := d.push(Token{Kind: kind, Start: i, Parent: parent}, maxTokens)
			if err != nil {
				return err
			}
			parent = idx

		case '}', ']':
			if parent < 0 {
				return fmt.Errorf("%w: unbalanced %q at offset %d", ErrMalformed, c, i)
			}
			tok := &d.tokens[parent]
			tok.End = i + 1
			tok.Next = len(d.tokens)
			parent = tok.Parent

		case '"':
			start := i + 1
			escaped := false
			j := start
			for ; j < len(data) && data[j] != '"'; j++ {
				if data[j] == '\\' {
					escaped = true
					j++
				}
			}
			if _, err := d.push(Token{Kind: KindString, Start: start, End: j, Parent: parent, escaped: escaped}, maxTokens); err != nil {
				return err
			}
			i = j

		default:
			j := i
			for ; j < len(data); j++ {
				if isDelimiter(data[j]) {
					break
				}
			}
			if _, err := d.push(Token{Kind: KindPrimitive, Start: i, End: j, Parent: parent}, maxTokens); err != nil {
				return err
			}
			i = j - 1
		}
	}
	return nil
}

func (d *Document) push(tok Token, maxTokens int) (int, error) {
	if len(d.tokens) >= maxTokens {
		return -1, fmt.Errorf("%w: limit %d", ErrTokenBudget, maxTokens)
	}
	idx := len(d.tokens)
	tok.Next = idx + 1
	d.tokens = append(d.tokens, tok)
	if tok.Parent >= 0 {
		d.tokens[tok.Parent].children++
	}
	return idx, nil
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', ',', ':', ']', '}':
		return true
	}
	return false
}
