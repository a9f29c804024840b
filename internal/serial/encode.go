package serial

import (
	"bytes"
	"math"
	"strconv"
)

// Encode writes n in serialized form. String and class lengths are always
// taken from the payload, never from Declared.
func Encode(n Node) []byte {
	var buf bytes.Buffer
	encode(&buf, n)
	return buf.Bytes()
}

func encode(buf *bytes.Buffer, n Node) {
	switch n.Kind {
	case Null:
		buf.WriteString("N;")
	case Bool:
		if n.Bool {
			buf.WriteString("b:1;")
		} else {
			buf.WriteString("b:0;")
		}
	case Int:
		buf.WriteString("i:")
		buf.WriteString(strconv.FormatInt(n.Int, 10))
		buf.WriteByte(';')
	case Float:
		buf.WriteString("d:")
		buf.WriteString(floatText(n))
		buf.WriteByte(';')
	case String:
		buf.WriteString("s:")
		quoted(buf, n.Str)
		buf.WriteByte(';')
	case Sequence, Keyed:
		buf.WriteString("a:")
		buf.WriteString(strconv.Itoa(len(n.Entries)))
		buf.WriteByte(':')
		entries(buf, n.Entries)
	case Object:
		buf.WriteString("O:")
		quoted(buf, []byte(n.Class))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(len(n.Entries)))
		buf.WriteByte(':')
		entries(buf, n.Entries)
	case Custom:
		buf.WriteString("C:")
		quoted(buf, []byte(n.Class))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(len(n.Str)))
		buf.WriteString(":{")
		buf.Write(n.Str)
		buf.WriteByte('}')
	case Ref:
		if n.StrongRef {
			buf.WriteString("R:")
		} else {
			buf.WriteString("r:")
		}
		buf.WriteString(strconv.FormatInt(n.Int, 10))
		buf.WriteByte(';')
	}
}

// quoted writes `<len>:"<b>"`.
func quoted(buf *bytes.Buffer, b []byte) {
	buf.WriteString(strconv.Itoa(len(b)))
	buf.WriteString(`:"`)
	buf.Write(b)
	buf.WriteByte('"')
}

func entries(buf *bytes.Buffer, es []Entry) {
	buf.WriteByte('{')
	for _, e := range es {
		encode(buf, e.Key)
		encode(buf, e.Value)
	}
	buf.WriteByte('}')
}

func floatText(n Node) string {
	if n.literal != "" {
		if same(n.literal, n.Float) {
			return n.literal
		}
	}
	switch {
	case math.IsInf(n.Float, 1):
		return "INF"
	case math.IsInf(n.Float, -1):
		return "-INF"
	case math.IsNaN(n.Float):
		return "NAN"
	}
	return strconv.FormatFloat(n.Float, 'G', -1, 64)
}

// same reports whether the literal still denotes f.
func same(literal string, f float64) bool {
	switch literal {
	case "INF":
		return math.IsInf(f, 1)
	case "-INF":
		return math.IsInf(f, -1)
	case "NAN":
		return math.IsNaN(f)
	}
	v, err := strconv.ParseFloat(literal, 64)
	return err == nil && v == f
}
