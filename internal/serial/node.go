// Package serial reads and writes the length-prefixed serialization format
// (PHP serialize) found in database columns written by PHP applications.
//
// Every string in the format carries its byte length. Parse trusts the
// declared lengths, Encode never does: lengths are recomputed from the
// payload, so a rewritten tree always encodes to a well-formed value.
package serial

import "fmt"

// Kind tags a Node.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
	Sequence // a: with only integer keys
	Keyed    // a: with at least one string key
	Object   // O:
	Custom   // C: payload is opaque
	Ref      // r: or R:
)

var kindNames = [...]string{"null", "bool", "int", "float", "string", "sequence", "keyed", "object", "custom", "ref"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Node is one value of a serialized tree.
type Node struct {
	Kind  Kind
	Bool  bool
	Int   int64 // Int value, or back-reference index for Ref
	Float float64

	// Str is the payload of String nodes and the opaque body of Custom nodes.
	Str []byte
	// Declared is the length header read by the parser. Encode ignores it.
	Declared int

	// Class names the class of Object and Custom nodes.
	Class string
	// Entries holds key/value pairs of Sequence, Keyed and Object nodes.
	Entries []Entry

	// StrongRef is true for R: references, false for r:.
	StrongRef bool

	literal string // float text as read, reused while it still matches Float
}

// Entry is one key/value pair of a container node.
type Entry struct {
	Key   Node
	Value Node
}

// NewNull returns a Null node.
func NewNull() Node { return Node{Kind: Null} }

// NewBool returns a Bool node.
func NewBool(b bool) Node { return Node{Kind: Bool, Bool: b} }

// NewInt returns an Int node.
func NewInt(i int64) Node { return Node{Kind: Int, Int: i} }

// NewFloat returns a Float node.
func NewFloat(f float64) Node { return Node{Kind: Float, Float: f} }

// NewString returns a String node with a correct declared length.
func NewString(s string) Node {
	return Node{Kind: String, Str: []byte(s), Declared: len(s)}
}

// NewArray builds a Sequence or Keyed node depending on the keys given.
func NewArray(entries ...Entry) Node {
	return Node{Kind: arrayKind(entries), Entries: entries}
}

// NewObject returns an Object node of the given class.
func NewObject(class string, props ...Entry) Node {
	return Node{Kind: Object, Class: class, Entries: props}
}

func arrayKind(entries []Entry) Kind {
	for _, e := range entries {
		if e.Key.Kind != Int {
			return Keyed
		}
	}
	return Sequence
}

// Get returns the value stored under a string key of a Keyed or Object node.
func (n Node) Get(key string) (Node, bool) {
	for _, e := range n.Entries {
		if e.Key.Kind == String && string(e.Key.Str) == key {
			return e.Value, true
		}
	}
	return Node{}, false
}

// Index returns the value stored under an integer key of an array node.
func (n Node) Index(key int64) (Node, bool) {
	for _, e := range n.Entries {
		if e.Key.Kind == Int && e.Key.Int == key {
			return e.Value, true
		}
	}
	return Node{}, false
}

// Equal reports whether two trees hold the same structure and contents.
// Declared lengths and float literals are not compared.
func Equal(a, b Node) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Null:
		return true
	case Bool:
		return a.Bool == b.Bool
	case Int:
		return a.Int == b.Int
	case Float:
		return a.Float == b.Float || (a.Float != a.Float && b.Float != b.Float)
	case String:
		return string(a.Str) == string(b.Str)
	case Ref:
		return a.Int == b.Int && a.StrongRef == b.StrongRef
	case Custom:
		return a.Class == b.Class && string(a.Str) == string(b.Str)
	}
	if a.Class != b.Class || len(a.Entries) != len(b.Entries) {
		return false
	}
	for i := range a.Entries {
		if !Equal(a.Entries[i].Key, b.Entries[i].Key) || !Equal(a.Entries[i].Value, b.Entries[i].Value) {
			return false
		}
	}
	return true
}

// Rewrite returns a copy of n with fn applied to every String value.
// Keys and Custom payloads are left alone. The second result reports
// whether fn changed any value.
func Rewrite(n Node, fn func([]byte) ([]byte, bool)) (Node, bool) {
	switch n.Kind {
	case String:
		out, changed := fn(n.Str)
		if !changed {
			return n, false
		}
		n.Str = out
		n.Declared = len(out)
		return n, true
	case Sequence, Keyed, Object:
		var entries []Entry
		for i, e := range n.Entries {
			v, changed := Rewrite(e.Value, fn)
			if !changed {
				continue
			}
			if entries == nil {
				entries = make([]Entry, len(n.Entries))
				copy(entries, n.Entries)
			}
			entries[i].Value = v
		}
		if entries == nil {
			return n, false
		}
		n.Entries = entries
		return n, true
	}
	return n, false
}
