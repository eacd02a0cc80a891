package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRunsRulesInOrder(t *testing.T) {
	p := MustNew("Kankri", "test", []Rule{
		{Pattern: "[bB]", Replacement: "6"},
		{Pattern: "[oO]", Replacement: "9"},
	})

	out, err := p.Apply("Bob")
	require.NoError(t, err)
	assert.Equal(t, "696", out)

	again, err := p.Apply(out)
	require.NoError(t, err)
	assert.Equal(t, "696", again)
}

func TestApplyFeedsEachRuleThePreviousOutput(t *testing.T) {
	p := MustNew("chain", "test", []Rule{
		{Pattern: "a", Replacement: "b"},
		{Pattern: "b", Replacement: "c"},
	})
	out, err := p.Apply("ab")
	require.NoError(t, err)
	assert.Equal(t, "cc", out)

	reversed := MustNew("chain", "test", []Rule{
		{Pattern: "b", Replacement: "c"},
		{Pattern: "a", Replacement: "b"},
	})
	out, err = reversed.Apply("ab")
	require.NoError(t, err)
	assert.Equal(t, "bc", out)
}

func TestApplyReplacements(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		repl    string
		in      string
		want    string
	}{
		{"global", "o", "0", "foo boo", "f00 b00"},
		{"backslash group", `(\w)(\w*)`, `\2\1`, "hello", "elloh"},
		{"named group", `(?P<w>\w+)`, `<\g<w>>`, "hi there", "<hi> <there>"},
		{"numbered g group", `(a)`, `\g<1>\g<1>`, "bab", "baab"},
		{"dollar digit is literal", `\$`, `$5`, "a$b", "a$5b"},
		{"dollar group is literal", `(\d+)`, `#$1`, "a1b22", "a#$1b#$1"},
		{"dollar braces are literal", `(?P<n>\d)`, `${n}`, "1", "${n}"},
		{"double dollar stays double", `x`, `$$`, "axb", "a$$b"},
		{"newline escape", `;`, `\n`, "a;b", "a\nb"},
		{"escaped backslash", `/`, `\\`, "a/b", `a\b`},
		{"whole match", `b+`, `[\0]`, "abbc", "a[bb]c"},
		{"unmatched group is empty", `(x)?y`, `[\1]`, "y", "[]"},
		{"case insensitive", `(?i)hi`, "yo", "Hi HI", "yo yo"},
		{"no empty match right after a match", `a*`, "-", "baac", "-b-c-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New("t", "test", []Rule{{Pattern: tt.pattern, Replacement: tt.repl}})
			require.NoError(t, err)
			out, err := p.Apply(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestNewRejectsWholeProfile(t *testing.T) {
	tests := []struct {
		name    string
		rules   []Rule
		badRule int
	}{
		{"bad pattern", []Rule{{"a", "b"}, {"(", "x"}}, 2},
		{"lookahead unsupported", []Rule{{"a(?=b)", "x"}}, 1},
		{"undefined group number", []Rule{{"(a)", `\2`}}, 1},
		{"undefined group name", []Rule{{"(?P<x>a)", `\g<y>`}}, 1},
		{"bad escape", []Rule{{"a", `\q`}}, 1},
		{"trailing backslash", []Rule{{"a", `b\`}}, 1},
		{"unterminated g", []Rule{{"(a)", `\g<1`}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New("broken", "src.yaml", tt.rules)
			assert.Nil(t, p)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, "broken", ve.Profile)
			assert.Equal(t, "src.yaml", ve.Source)
			assert.Equal(t, tt.badRule, ve.Rule)
		})
	}
}

func TestEmptyProfileIsIdentity(t *testing.T) {
	p, err := New("identity", "test", nil)
	require.NoError(t, err)
	out, err := p.Apply("bOb")
	require.NoError(t, err)
	assert.Equal(t, "bOb", out)

	out, err = Identity().Apply("x")
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestApplySkipsFailingRule(t *testing.T) {
	p := MustNew("p", "test", []Rule{
		{Pattern: "a", Replacement: "b"},
		{Pattern: "c", Replacement: "d"},
	})
	// a template that reads past the submatch slice panics inside expand
	p.rules[0].tmpl = template{{group: 5}}

	out, err := p.Apply("ac")
	require.Error(t, err)
	var re *RuleError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 1, re.Rule)
	assert.Equal(t, "ad", out)
}

func TestDescribe(t *testing.T) {
	p := MustNew("Kankri", "test", DemoRules)
	assert.Equal(t, "1. '[bB]' -> '6'\n2. '[oO]' -> '9'", p.Describe())
	assert.Equal(t, DemoRules, p.Rules())
}

func TestOutputFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter OutputFilter
		in     string
		want   string
	}{
		{"none", OutputFilter{}, "a*b", "a*b"},
		{"escape", OutputFilter{MarkdownEscape: true}, "a*b|c>d", `a\*b\|c\>d`},
		{"fence", OutputFilter{MarkdownFence: true}, "a*b", "`a*b`"},
		{"fence wins", OutputFilter{MarkdownFence: true, MarkdownEscape: true}, "a*b", "`a*b`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Apply(tt.in))
		})
	}
}
