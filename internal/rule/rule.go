// Package rule provides the line grammar used by the collector parsers: a
// library of regex fragments, named rules bound to one line shape, and a
// typed accessor over a successful match.
package rule

import "regexp"

// Rule is a named grammar for one line shape. A rule matches anywhere in the
// line; collector lines often concatenate several records.
type Rule struct {
	name   string
	re     *regexp.Regexp
	groups map[string][]int
}

// New compiles expr into a rule. It panics on an invalid expression, like
// regexp.MustCompile; rules are package level values.
func New(name, expr string) *Rule {
	re := regexp.MustCompile(expr)
	groups := make(map[string][]int)
	for i, n := range re.SubexpNames() {
		if n != "" {
			groups[n] = append(groups[n], i)
		}
	}
	return &Rule{name: name, re: re, groups: groups}
}

// Name returns the rule name used in diagnostics.
func (r *Rule) Name() string {
	return r.name
}

// String returns the rule expression.
func (r *Rule) String() string {
	return r.re.String()
}

// Matches reports whether the rule matches line.
func (r *Rule) Matches(line string) bool {
	return r.re.MatchString(line)
}

// Parse matches line and returns its trace, or nil when the rule does not
// match.
func (r *Rule) Parse(line string) *Trace {
	m := r.re.FindStringSubmatchIndex(line)
	if m == nil {
		return nil
	}
	return &Trace{rule: r, line: line, idx: m}
}

// ParseAll returns a trace for every non-overlapping match in line.
func (r *Rule) ParseAll(line string) []*Trace {
	all := r.re.FindAllStringSubmatchIndex(line, -1)
	out := make([]*Trace, 0, len(all))
	for _, m := range all {
		out = append(out, &Trace{rule: r, line: line, idx: m})
	}
	return out
}

// First returns the trace of the first rule in rules that matches line.
func First(line string, rules ...*Rule) *Trace {
	for _, r := range rules {
		if tr := r.Parse(line); tr != nil {
			return tr
		}
	}
	return nil
}
