package replace

import (
	"testing"

	"srdb/internal/report"
)

func TestCompile(t *testing.T) {
	var tests = []struct {
		name     string
		spec     Spec
		errIsNil bool
	}{
		{"literal", Spec{Pairs: []Pair{{"a", "b"}}}, true},
		{"regex", Spec{Pairs: []Pair{{`/foo(\d+)/i`, "bar$1"}}, Regex: true}, true},
		{"no pairs", Spec{}, false},
		{"empty search", Spec{Pairs: []Pair{{"a", "b"}, {"", "c"}}}, false},
		{"bad regex", Spec{Pairs: []Pair{{"/foo(/", "x"}}, Regex: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.spec)
			if (err == nil) != tt.errIsNil {
				t.Fatalf("\ngot error %v, wanted nil=%v", err, tt.errIsNil)
			}
			if err != nil && report.CategoryOf(err) != report.CategoryConfig {
				t.Errorf("\ngot category %q, wanted config", report.CategoryOf(err))
			}
		})
	}
}

func TestApply(t *testing.T) {
	var tests = []struct {
		name string
		spec Spec
		in   string
		out  string
	}{
		{"literal", Spec{Pairs: []Pair{{"http://old", "https://new"}}}, "see http://old/x", "see https://new/x"},
		{"every occurrence", Spec{Pairs: []Pair{{"a", "b"}}}, "aaa", "bbb"},
		{"pairs in order", Spec{Pairs: []Pair{{"a", "b"}, {"b", "c"}}}, "ab", "cc"},
		{"delete", Spec{Pairs: []Pair{{"x", ""}}}, "axbx", "ab"},
		{"regex backreference", Spec{Pairs: []Pair{{`/foo(\d+)/`, "bar$1"}}, Regex: true}, "foo12 and foo3", "bar12 and bar3"},
		{"regex backslash reference", Spec{Pairs: []Pair{{`/(\w+)@old/`, `\1@new`}}, Regex: true}, "me@old", "me@new"},
		{"regex case insensitive", Spec{Pairs: []Pair{{"/OLD/i", "new"}}, Regex: true}, "Old old", "new new"},
		{"regex literal dollar", Spec{Pairs: []Pair{{"/price/", "$ cost"}}, Regex: true}, "price", "$ cost"},
		{"parentheses are delimiters", Spec{Pairs: []Pair{{`(\d+)`, "<$1>"}}, Regex: true}, "a12", "a<>"},
		{"group inside delimiters", Spec{Pairs: []Pair{{`/(\d+)/`, "<$1>"}}, Regex: true}, "a12", "a<12>"},
		{"bare pattern keeps its group", Spec{Pairs: []Pair{{`x(\d+)`, "<$1>"}}, Regex: true}, "x12", "<12>"},
		{"no match", Spec{Pairs: []Pair{{"zzz", "y"}}}, "abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Compile(tt.spec)
			if err != nil {
				t.Fatal(err)
			}
			out, changed := r.Apply([]byte(tt.in))
			if string(out) != tt.out {
				t.Errorf("\ngot %q, wanted %q", out, tt.out)
			}
			if changed != (tt.in != tt.out) {
				t.Errorf("\ngot changed=%v", changed)
			}
		})
	}
}

func TestExpandTemplate(t *testing.T) {
	var tests = []struct {
		in  string
		out string
	}{
		{"bar$1", "bar${1}"},
		{`\1x`, "${1}x"},
		{"${2}0", "${2}0"},
		{"$12", "${12}"},
		{"cost $", "cost $$"},
		{"${name}", "$${name}"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandTemplate(tt.in); got != tt.out {
				t.Errorf("\ngot %q, wanted %q", got, tt.out)
			}
		})
	}
}

func TestCompilePattern(t *testing.T) {
	var tests = []struct {
		pattern string
		input   string
		match   bool
	}{
		{"/FOO/i", "foo", true},
		{"#a.b#s", "a\nb", true},
		{"#a.b#", "a\nb", false},
		{"/^b$/m", "a\nb\nc", true},
		{"{x+}", "xx", true},
		{`(\d+)`, "7", true},
		{`foo\d`, "foo1", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			re, err := CompilePattern(tt.pattern)
			if err != nil {
				t.Fatal(err)
			}
			if got := re.MatchString(tt.input); got != tt.match {
				t.Errorf("\ngot match=%v, wanted %v", got, tt.match)
			}
		})
	}
}

func TestTransform(t *testing.T) {
	var tests = []struct {
		name       string
		in         string
		out        string
		serialized bool
		repaired   bool
	}{
		{"plain text",
			"findMe in text", "replaced in text", false, false},
		{"serialized map",
			`a:2:{s:1:"a";s:6:"findMe";s:1:"b";i:2;}`,
			`a:2:{s:1:"a";s:8:"replaced";s:1:"b";i:2;}`, true, false},
		{"keys are left alone",
			`a:1:{s:6:"findMe";s:1:"x";}`,
			`a:1:{s:6:"findMe";s:1:"x";}`, true, false},
		{"nested serialized string",
			`a:1:{i:0;s:23:"a:1:{i:0;s:6:"findMe";}";}`,
			`a:1:{i:0;s:25:"a:1:{i:0;s:8:"replaced";}";}`, true, false},
		{"object property",
			`O:3:"Foo":1:{s:3:"url";s:10:"a findMe b";}`,
			`O:3:"Foo":1:{s:3:"url";s:12:"a replaced b";}`, true, false},
		{"stale length repaired",
			`a:1:{i:0;s:3:"findMe";}`,
			`a:1:{i:0;s:8:"replaced";}`, true, true},
		{"huge declared length repaired",
			`a:1:{i:0;s:9223372036854775807:"findMe";}`,
			`a:1:{i:0;s:8:"replaced";}`, true, true},
		{"huge declared length without a match",
			`s:9223372036854775807:"x";`,
			`s:9223372036854775807:"x";`, true, true},
		{"integers untouched",
			`i:5;`, `i:5;`, true, false},
		{"broken serialization treated as text",
			`a:1:{findMe`, `a:1:{replaced`, false, false},
	}

	r, err := Compile(Spec{Pairs: []Pair{{"findMe", "replaced"}}})
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Transform([]byte(tt.in))
			if string(res.Value) != tt.out {
				t.Errorf("\ngot %q\nwanted %q", res.Value, tt.out)
			}
			if res.Changed != (tt.in != tt.out) {
				t.Errorf("\ngot changed=%v", res.Changed)
			}
			if res.Serialized != tt.serialized {
				t.Errorf("\ngot serialized=%v, wanted %v", res.Serialized, tt.serialized)
			}
			if res.Repaired != tt.repaired {
				t.Errorf("\ngot repaired=%v, wanted %v", res.Repaired, tt.repaired)
			}
		})
	}
}

func TestTransformIdempotent(t *testing.T) {
	r, err := Compile(Spec{Pairs: []Pair{{"http://a.test", "https://b.test"}}})
	if err != nil {
		t.Fatal(err)
	}
	in := []byte(`a:2:{s:4:"home";s:13:"http://a.test";s:4:"list";a:1:{i:0;s:18:"http://a.test/page";}}`)
	first := r.Transform(in)
	if !first.Changed {
		t.Fatal("expected a change")
	}
	second := r.Transform(first.Value)
	if second.Changed || string(second.Value) != string(first.Value) {
		t.Errorf("\nsecond pass changed %q to %q", first.Value, second.Value)
	}
}
