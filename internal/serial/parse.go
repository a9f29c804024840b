package serial

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrNotSerialized marks input that does not start like a serialized
	// value at all. Ordinary column content fails this way.
	ErrNotSerialized = errors.New("not a serialized value")
	// ErrMalformed marks input that starts like a serialized value but
	// breaks the grammar further in.
	ErrMalformed = errors.New("malformed serialized value")
)

const maxDepth = 512

// ParseError reports where and why parsing stopped.
type ParseError struct {
	Offset int
	Reason string
	kind   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("serial: %s at offset %d", e.Reason, e.Offset)
}

func (e *ParseError) Unwrap() error { return e.kind }

// Parse decodes exactly one serialized value spanning all of data.
func Parse(data []byte) (Node, error) {
	return parseAll(data, false)
}

// Repair decodes data like Parse, but when a string's declared length does
// not land on its terminator it re-derives the string boundary from the
// surrounding structure. Values whose lengths went stale after a naive
// substring replace can be recovered this way; Encode then writes correct
// lengths.
func Repair(data []byte) (Node, error) {
	if n, err := Parse(data); err == nil {
		return n, nil
	}
	return parseAll(data, true)
}

// LooksSerialized is a cheap check on the leading bytes of data.
func LooksSerialized(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	switch data[0] {
	case 'N':
		return data[1] == ';'
	case 'b', 'i', 'd', 's', 'a', 'O', 'C', 'r', 'R':
		return data[1] == ':'
	}
	return false
}

func parseAll(data []byte, lenient bool) (Node, error) {
	if !LooksSerialized(data) {
		return Node{}, &ParseError{Offset: 0, Reason: "unrecognized type tag", kind: ErrNotSerialized}
	}
	p := parser{data: data, lenient: lenient}
	n, err := p.value(0)
	if err != nil {
		return Node{}, err
	}
	if p.pos != len(p.data) {
		return Node{}, p.fail("trailing bytes after value")
	}
	return n, nil
}

type parser struct {
	data    []byte
	pos     int
	lenient bool
}

func (p *parser) fail(format string, args ...interface{}) error {
	return &ParseError{Offset: p.pos, Reason: fmt.Sprintf(format, args...), kind: ErrMalformed}
}

func (p *parser) remaining() int { return len(p.data) - p.pos }

func (p *parser) expect(b byte) error {
	if p.pos >= len(p.data) || p.data[p.pos] != b {
		return p.fail("expected %q", b)
	}
	p.pos++
	return nil
}

// until returns the bytes up to the next occurrence of stop and consumes stop.
func (p *parser) until(stop byte) ([]byte, error) {
	i := bytes.IndexByte(p.data[p.pos:], stop)
	if i < 0 {
		return nil, p.fail("missing %q", stop)
	}
	tok := p.data[p.pos : p.pos+i]
	p.pos += i + 1
	return tok, nil
}

func (p *parser) integer(stop byte) (int64, error) {
	start := p.pos
	tok, err := p.until(stop)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(tok), 10, 64)
	if err != nil {
		p.pos = start
		return 0, p.fail("invalid integer %q", tok)
	}
	return v, nil
}

// length reads a non-negative length or count terminated by ':'.
func (p *parser) length() (int, error) {
	start := p.pos
	v, err := p.integer(':')
	if err != nil {
		return 0, err
	}
	if v < 0 {
		p.pos = start
		return 0, p.fail("negative length %d", v)
	}
	if v > int64(len(p.data)) && !p.lenient {
		p.pos = start
		return 0, p.fail("length %d exceeds input", v)
	}
	return int(v), nil
}

func (p *parser) value(depth int) (Node, error) {
	if depth > maxDepth {
		return Node{}, p.fail("nesting deeper than %d", maxDepth)
	}
	if p.remaining() < 2 {
		return Node{}, p.fail("unexpected end of input")
	}
	tag := p.data[p.pos]
	if tag == 'N' {
		if p.data[p.pos+1] != ';' {
			return Node{}, p.fail("expected ';' after N")
		}
		p.pos += 2
		return NewNull(), nil
	}
	if p.data[p.pos+1] != ':' {
		return Node{}, p.fail("expected ':' after tag %q", tag)
	}
	p.pos += 2

	switch tag {
	case 'b':
		v, err := p.integer(';')
		if err != nil {
			return Node{}, err
		}
		if v != 0 && v != 1 {
			return Node{}, p.fail("invalid boolean %d", v)
		}
		return NewBool(v == 1), nil
	case 'i':
		v, err := p.integer(';')
		if err != nil {
			return Node{}, err
		}
		return NewInt(v), nil
	case 'd':
		return p.float()
	case 's':
		return p.str()
	case 'a':
		return p.array(depth)
	case 'O':
		return p.object(depth)
	case 'C':
		return p.custom()
	case 'r', 'R':
		v, err := p.integer(';')
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: Ref, Int: v, StrongRef: tag == 'R'}, nil
	}
	p.pos -= 2
	return Node{}, p.fail("unrecognized type tag %q", tag)
}

func (p *parser) float() (Node, error) {
	start := p.pos
	tok, err := p.until(';')
	if err != nil {
		return Node{}, err
	}
	var f float64
	switch string(tok) {
	case "INF":
		f = math.Inf(1)
	case "-INF":
		f = math.Inf(-1)
	case "NAN":
		f = math.NaN()
	default:
		f, err = strconv.ParseFloat(string(tok), 64)
		if err != nil {
			p.pos = start
			return Node{}, p.fail("invalid float %q", tok)
		}
	}
	return Node{Kind: Float, Float: f, literal: string(tok)}, nil
}

// quoted reads `"<n bytes>"` using the declared length n.
func (p *parser) quoted(n int) ([]byte, error) {
	if err := p.expect('"'); err != nil {
		return nil, err
	}
	if n > p.remaining() {
		return nil, p.fail("declared length %d exceeds remaining input %d", n, p.remaining())
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	if err := p.expect('"'); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *parser) str() (Node, error) {
	n, err := p.length()
	if err != nil {
		return Node{}, err
	}
	if p.lenient {
		return p.lenientStr(n)
	}
	b, err := p.quoted(n)
	if err != nil {
		return Node{}, err
	}
	if err := p.expect(';'); err != nil {
		return Node{}, err
	}
	return Node{Kind: String, Str: b, Declared: n}, nil
}

// lenientStr picks the `";` terminator closest to the declared length among
// those followed by something that can legally come next.
func (p *parser) lenientStr(declared int) (Node, error) {
	if err := p.expect('"'); err != nil {
		return Node{}, err
	}
	start := p.pos
	// a declared length past the end of input falls back to the search
	want := len(p.data)
	if declared <= len(p.data)-start {
		want = start + declared
		if want+2 <= len(p.data) && p.data[want] == '"' && p.data[want+1] == ';' && p.continues(want+2) {
			p.pos = want + 2
			return Node{Kind: String, Str: p.data[start:want], Declared: declared}, nil
		}
	}
	best := -1
	for i := start; i+1 < len(p.data); i++ {
		if p.data[i] != '"' || p.data[i+1] != ';' || !p.continues(i+2) {
			continue
		}
		if best < 0 || abs(i-want) < abs(best-want) {
			best = i
		}
		if i > want {
			break
		}
	}
	if best < 0 {
		return Node{}, p.fail("unterminated string")
	}
	p.pos = best + 2
	return Node{Kind: String, Str: p.data[start:best], Declared: declared}, nil
}

// continues reports whether offset i may follow a complete value.
func (p *parser) continues(i int) bool {
	if i == len(p.data) || p.data[i] == '}' {
		return true
	}
	if i+1 >= len(p.data) {
		return false
	}
	switch p.data[i] {
	case 'N':
		return p.data[i+1] == ';'
	case 'b', 'i', 'd', 's', 'a', 'O', 'C', 'r', 'R':
		return p.data[i+1] == ':'
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (p *parser) entries(depth int, count int, stringKeys bool) ([]Entry, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	// every entry takes at least four bytes ("i:0;N;" is six)
	if count > p.remaining()/4 {
		return nil, p.fail("count %d exceeds remaining input", count)
	}
	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		k, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		if k.Kind != String && (stringKeys || k.Kind != Int) {
			return nil, p.fail("invalid key of kind %s", k.Kind)
		}
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: k, Value: v})
	}
	if err := p.expect('}'); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *parser) array(depth int) (Node, error) {
	count, err := p.length()
	if err != nil {
		return Node{}, err
	}
	entries, err := p.entries(depth, count, false)
	if err != nil {
		return Node{}, err
	}
	return Node{Kind: arrayKind(entries), Entries: entries}, nil
}

func (p *parser) object(depth int) (Node, error) {
	n, err := p.length()
	if err != nil {
		return Node{}, err
	}
	class, err := p.quoted(n)
	if err != nil {
		return Node{}, err
	}
	if err := p.expect(':'); err != nil {
		return Node{}, err
	}
	count, err := p.length()
	if err != nil {
		return Node{}, err
	}
	props, err := p.entries(depth, count, true)
	if err != nil {
		return Node{}, err
	}
	return Node{Kind: Object, Class: string(class), Entries: props}, nil
}

func (p *parser) custom() (Node, error) {
	n, err := p.length()
	if err != nil {
		return Node{}, err
	}
	class, err := p.quoted(n)
	if err != nil {
		return Node{}, err
	}
	if err := p.expect(':'); err != nil {
		return Node{}, err
	}
	size, err := p.length()
	if err != nil {
		return Node{}, err
	}
	if err := p.expect('{'); err != nil {
		return Node{}, err
	}
	if size > p.remaining() {
		return Node{}, p.fail("declared length %d exceeds remaining input %d", size, p.remaining())
	}
	body := p.data[p.pos : p.pos+size]
	p.pos += size
	if err := p.expect('}'); err != nil {
		return Node{}, err
	}
	return Node{Kind: Custom, Class: string(class), Str: body, Declared: size}, nil
}
