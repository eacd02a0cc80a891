// Package profile compiles, validates, stores and applies rule profiles:
// named, ordered lists of regular-expression substitutions.
package profile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Rule is a raw pattern/replacement pair as read from a profile source.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	Rule
	re   *regexp.Regexp
	tmpl template
}

func (r *compiledRule) apply(s string) string {
	matches := r.re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		r.tmpl.expand(&b, s, m)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// Profile is a validated, immutable rule profile. Rules run strictly in
// order, each over the output of the previous one.
type Profile struct {
	name   string
	source string
	rules  []compiledRule
}

// New compiles and validates rules. Either every rule is usable and a
// complete Profile is returned, or a *ValidationError is returned and no
// profile exists.
func New(name, source string, rules []Rule) (*Profile, error) {
	p := &Profile{
		name:   name,
		source: source,
		rules:  make([]compiledRule, 0, len(rules)),
	}
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, &ValidationError{Profile: name, Source: source, Rule: i + 1, Pattern: r.Pattern, Err: err}
		}
		tmpl, err := parseTemplate(r.Replacement, re)
		if err != nil {
			return nil, &ValidationError{Profile: name, Source: source, Rule: i + 1, Pattern: r.Pattern, Err: err}
		}
		p.rules = append(p.rules, compiledRule{Rule: r, re: re, tmpl: tmpl})
	}

	// dry run on the empty string, the same check the rules get at apply time
	if _, err := p.Apply(""); err != nil {
		var re *RuleError
		if errors.As(err, &re) {
			return nil, &ValidationError{Profile: name, Source: source, Rule: re.Rule, Pattern: re.Pattern, Err: re.Err}
		}
		return nil, &ValidationError{Profile: name, Source: source, Err: err}
	}
	return p, nil
}

// MustNew is New that panics on error.
func MustNew(name, source string, rules []Rule) *Profile {
	p, err := New(name, source, rules)
	if err != nil {
		panic(err)
	}
	return p
}

// Identity returns a profile without rules.
func Identity() *Profile {
	return &Profile{name: "identity", source: "builtin"}
}

// Name returns the profile name.
func (p *Profile) Name() string { return p.name }

// Source identifies where the profile was loaded from.
func (p *Profile) Source() string { return p.source }

// Len returns the number of rules.
func (p *Profile) Len() int { return len(p.rules) }

// Rules returns a copy of the raw rules in order.
func (p *Profile) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	for i, r := range p.rules {
		out[i] = r.Rule
	}
	return out
}

// Apply runs every rule over text in order, replacing all matches. A rule
// that fails is skipped and reported in the returned error; the text is
// always usable.
func (p *Profile) Apply(text string) (string, error) {
	if p == nil {
		return text, nil
	}
	var errs []error
	for i := range p.rules {
		out, err := p.applyRule(i, text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		text = out
	}
	return text, errors.Join(errs...)
}

func (p *Profile) applyRule(i int, text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = text
			err = &RuleError{Profile: p.name, Rule: i + 1, Pattern: p.rules[i].Pattern, Err: fmt.Errorf("%v", r)}
		}
	}()
	return p.rules[i].apply(text), nil
}

// Describe renders the rule list for display, one rule per line.
func (p *Profile) Describe() string {
	if p == nil {
		return ""
	}
	lines := make([]string, len(p.rules))
	for i, r := range p.rules {
		lines[i] = fmt.Sprintf("%d. '%s' -> '%s'", i+1, r.Pattern, r.Replacement)
	}
	return strings.Join(lines, "\n")
}
