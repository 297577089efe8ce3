// Package jsontok is a bounded JSON extractor for small, untrusted payloads.
//
// A document is scanned once into a fixed-capacity table of tokens. Each
// token records its kind, its byte span in the input and the index one past
// the end of its subtree, so sibling scans skip whole subtrees in one step
// and lookup cost is bounded by the token count rather than the input size.
//
// Tokenization fails closed: malformed input or a token budget that is too
// small abandons the whole document. Callers never see a partial table.
//
// Object members are stored as a key token (a string) immediately followed
// by its value token. Both carry the object as their parent.
package jsontok
