// Package replace applies search/replace pairs to column values, keeping
// serialized values well formed, and drives the table-by-table run.
package replace

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"srdb/internal/report"
	"srdb/internal/serial"
)

// Pair is one search value and its replacement.
type Pair struct {
	Search  string
	Replace string
}

// Spec is an ordered list of pairs. With Regex set, Search is a regular
// expression and Replace may refer to capture groups.
type Spec struct {
	Pairs []Pair
	Regex bool
}

// Searches returns the search values in order.
func (s Spec) Searches() []string {
	out := make([]string, len(s.Pairs))
	for i, p := range s.Pairs {
		out[i] = p.Search
	}
	return out
}

// Replaces returns the replacement values in order.
func (s Spec) Replaces() []string {
	out := make([]string, len(s.Pairs))
	for i, p := range s.Pairs {
		out[i] = p.Replace
	}
	return out
}

type rule struct {
	search  []byte
	replace []byte
	re      *regexp.Regexp
}

// Replacer is a compiled Spec. It is safe for concurrent use.
type Replacer struct {
	spec  Spec
	rules []rule
}

// Compile validates spec. Empty search values and invalid patterns are
// configuration errors.
func Compile(spec Spec) (*Replacer, error) {
	if len(spec.Pairs) == 0 {
		return nil, report.Errorf(report.CategoryConfig, "", "no search values given")
	}
	r := &Replacer{spec: spec}
	for i, p := range spec.Pairs {
		if p.Search == "" {
			return nil, report.Errorf(report.CategoryConfig, "", "search value %d is empty", i+1)
		}
		if !spec.Regex {
			r.rules = append(r.rules, rule{search: []byte(p.Search), replace: []byte(p.Replace)})
			continue
		}
		re, err := CompilePattern(p.Search)
		if err != nil {
			return nil, report.Errorf(report.CategoryConfig, "", "search value %d: %v", i+1, err)
		}
		r.rules = append(r.rules, rule{re: re, replace: []byte(ExpandTemplate(p.Replace))})
	}
	return r, nil
}

// Spec returns the spec r was compiled from.
func (r *Replacer) Spec() Spec { return r.spec }

// Apply runs every pair over b in order, each pass completing before the
// next pair starts. It reports whether the result differs from b.
func (r *Replacer) Apply(b []byte) ([]byte, bool) {
	out := b
	for _, ru := range r.rules {
		if ru.re != nil {
			out = ru.re.ReplaceAll(out, ru.replace)
			continue
		}
		if bytes.Contains(out, ru.search) {
			out = bytes.ReplaceAll(out, ru.search, ru.replace)
		}
	}
	return out, !bytes.Equal(out, b)
}

// Result is the outcome of transforming one value.
type Result struct {
	Value      []byte
	Changed    bool
	Serialized bool
	Repaired   bool
}

// Transform replaces inside value. Serialized values are parsed, their
// string leaves rewritten (recursing into leaves that are serialized
// themselves) and the tree re-encoded with fresh lengths. Anything else is
// treated as plain text.
func (r *Replacer) Transform(value []byte) Result {
	if serial.LooksSerialized(value) {
		n, err := serial.Parse(value)
		repaired := false
		if err != nil {
			n, err = serial.Repair(value)
			repaired = err == nil
		}
		if err == nil {
			out, changed := serial.Rewrite(n, r.leaf)
			if !changed {
				return Result{Value: value, Serialized: true, Repaired: repaired}
			}
			return Result{Value: serial.Encode(out), Changed: true, Serialized: true, Repaired: repaired}
		}
	}
	out, changed := r.Apply(value)
	return Result{Value: out, Changed: changed}
}

func (r *Replacer) leaf(b []byte) ([]byte, bool) {
	res := r.Transform(b)
	return res.Value, res.Changed
}

var modifierFlags = map[byte]string{
	'i': "i",
	'm': "m",
	's': "s",
	'U': "U",
	'u': "", // patterns are always UTF-8
	'D': "", // $ already matches only at the end without m
}

// CompilePattern compiles a delimited pattern such as /foo(\d+)/i, or a
// bare Go regular expression when p is not delimited.
//
// Bracket pairs delimit too, as in PHP: (\d+) is the pattern \d+ with no
// capture group, so $1 in its replacement expands to nothing. Write the
// group inside real delimiters, /(\d+)/, to keep it.
func CompilePattern(p string) (*regexp.Regexp, error) {
	if body, flags, ok := splitDelimited(p); ok {
		if flags != "" {
			body = "(?" + flags + ")" + body
		}
		return regexp.Compile(body)
	}
	return regexp.Compile(p)
}

func splitDelimited(p string) (body, flags string, ok bool) {
	if len(p) < 2 {
		return "", "", false
	}
	open := p[0]
	if isAlnum(open) || open == '\\' || open == ' ' || open == '\t' || open == '\n' || open >= 0x80 {
		return "", "", false
	}
	closing := open
	switch open {
	case '(':
		closing = ')'
	case '[':
		closing = ']'
	case '{':
		closing = '}'
	case '<':
		closing = '>'
	}
	end := strings.LastIndexByte(p, closing)
	if end <= 0 {
		return "", "", false
	}
	var fs strings.Builder
	for i := end + 1; i < len(p); i++ {
		f, known := modifierFlags[p[i]]
		if !known {
			return "", "", false
		}
		fs.WriteString(f)
	}
	return p[1:end], fs.String(), true
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// ExpandTemplate rewrites a replacement that may use $1, \1 or ${1} for
// capture groups into regexp template syntax. Any other $ is literal.
func ExpandTemplate(rep string) string {
	var b strings.Builder
	for i := 0; i < len(rep); i++ {
		c := rep[i]
		switch {
		case (c == '$' || c == '\\') && i+1 < len(rep) && isDigit(rep[i+1]):
			j := i + 1
			for j < len(rep) && j < i+3 && isDigit(rep[j]) {
				j++
			}
			fmt.Fprintf(&b, "${%s}", rep[i+1:j])
			i = j - 1
		case c == '$' && i+1 < len(rep) && rep[i+1] == '{':
			end := strings.IndexByte(rep[i:], '}')
			if end > 2 && allDigits(rep[i+2:i+end]) {
				b.WriteString(rep[i : i+end+1])
				i += end
				continue
			}
			b.WriteString("$$")
		case c == '$':
			b.WriteString("$$")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}
