package gqlerrors

import "strconv"

// RequestPath is an immutable, parent-linked response path. Segments are only
// copied into a Path when an error needs to report them.
type RequestPath struct {
	parent *RequestPath
	key    string
	index  int
	depth  int
}

// Field returns the path extended with a response key. A nil receiver is the
// root path.
func (p *RequestPath) Field(key string) *RequestPath {
	return &RequestPath{parent: p, key: key, index: -1, depth: p.Len() + 1}
}

// Index returns the path extended with a list index.
func (p *RequestPath) Index(i int) *RequestPath {
	return &RequestPath{parent: p, index: i, depth: p.Len() + 1}
}

// Len is the number of segments in the path.
func (p *RequestPath) Len() int {
	if p == nil {
		return 0
	}
	return p.depth
}

// Key returns the last response key of the path and whether the last segment
// is a key rather than an index.
func (p *RequestPath) Key() (string, bool) {
	if p == nil || p.index >= 0 {
		return "", false
	}
	return p.key, true
}

// Materialize builds the array form of the path, root first.
func (p *RequestPath) Materialize() Path {
	n := p.Len()
	if n == 0 {
		return nil
	}
	out := make(Path, n)
	for cur := p; cur != nil; cur = cur.parent {
		n--
		if cur.index >= 0 {
			out[n] = cur.index
		} else {
			out[n] = cur.key
		}
	}
	return out
}

func (p *RequestPath) String() string {
	result := ""
	for i, elem := range p.Materialize() {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				result += "."
			}
			result += v
		case int:
			result += "[" + strconv.Itoa(v) + "]"
		}
	}
	return result
}
