/*
 *    Copyright 2025 Jeff Galyan
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package numbat

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Params maps parameter names to the values captured from a navigation url.
type Params map[string]string

// Key describes one parameter of a compiled template. Anonymous groups and
// catch-all wildcards are named by their position among anonymous keys ("0", "1", ...).
type Key struct {
	Name     string
	Prefix   string // delimiter emitted before the value, usually "/"
	Pattern  string // regular expression a single value must match
	Optional bool
	Repeat   bool
}

// Matcher tests urls against one compiled template.
type Matcher interface {
	// Match reports whether url satisfies the template.
	Match(url string) bool
	// Exec returns the captured values in Keys order. Optional keys that did
	// not participate in the match yield "".
	Exec(url string) ([]string, bool)
	// Keys returns the template's parameters in declaration order.
	Keys() []Key
}

// PathFunc renders a concrete path from parameter values.
type PathFunc func(Params) (string, error)

// PatternCompiler turns path templates into matchers and reverse renderers.
type PatternCompiler interface {
	Compile(template string) (Matcher, error)
	ToPath(template string) (PathFunc, error)
}

// PatternConfig configures the default compiler.
type PatternConfig struct {
	// Sensitive makes matching case sensitive.
	Sensitive bool
	// Strict disables the optional trailing slash.
	Strict bool
}

// Patterns is the default PatternCompiler.
//
// Syntax:
//   - ":name" matches one path segment; ":name(re)" uses a custom expression
//   - "(re)" is an anonymous parameter
//   - "?", "*" and "+" after a parameter make it optional, repeated or both
//   - a bare "*" captures the remainder of the path
//   - "\" escapes the following character
//
// "[", "]", "{" and "}" are reserved.
type Patterns struct {
	cfg PatternConfig
}

// NewPatterns creates the default compiler.
func NewPatterns(cfg PatternConfig) *Patterns {
	return &Patterns{cfg: cfg}
}

const defaultSegment = `[^/]+?`

type token struct {
	lit      string
	key      *Key
	start    int // offset of the parameter in the template
	wildcard bool
}

type pathMatcher struct {
	re   *regexp.Regexp
	keys []Key
}

func (m *pathMatcher) Match(u string) bool { return m.re.MatchString(u) }

func (m *pathMatcher) Exec(u string) ([]string, bool) {
	sub := m.re.FindStringSubmatch(u)
	if sub == nil {
		return nil, false
	}
	return sub[1:], true
}

func (m *pathMatcher) Keys() []Key { return m.keys }

// Compile builds a matcher for template.
func (p *Patterns) Compile(template string) (Matcher, error) {
	toks, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	if !p.cfg.Sensitive {
		b.WriteString("(?i)")
	}
	b.WriteString("^")
	keys := make([]Key, 0, len(toks))
	for i, t := range toks {
		if t.key == nil {
			lit := t.lit
			if !p.cfg.Strict && i == len(toks)-1 {
				lit = strings.TrimSuffix(lit, "/")
			}
			b.WriteString(regexp.QuoteMeta(lit))
			continue
		}
		k := *t.key
		if err := checkParamPattern(template, k.Pattern); err != nil {
			return nil, err
		}
		keys = append(keys, k)

		capture := k.Pattern
		if k.Repeat {
			delim := k.Prefix
			if delim == "" {
				delim = "/"
			}
			capture = fmt.Sprintf("(?:%s)(?:%s(?:%s))*", capture, regexp.QuoteMeta(delim), capture)
		}
		prefix := regexp.QuoteMeta(k.Prefix)
		if k.Optional {
			if prefix == "" {
				b.WriteString("(" + capture + ")?")
			} else {
				b.WriteString("(?:" + prefix + "(" + capture + "))?")
			}
		} else {
			b.WriteString(prefix + "(" + capture + ")")
		}
	}
	if !p.cfg.Strict {
		b.WriteString("/?")
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, &InvalidPatternError{Template: template, Pos: -1, Reason: "cannot compile expression", Err: err}
	}
	if re.NumSubexp() != len(keys) {
		return nil, invalidPattern(template, -1, "capturing groups are not allowed inside parameter patterns")
	}
	return &pathMatcher{re: re, keys: keys}, nil
}

// ToPath returns a renderer for template. Rendering fails when a required
// parameter is missing or a value does not satisfy its parameter pattern.
func (p *Patterns) ToPath(template string) (PathFunc, error) {
	toks, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}
	checks := make([]*regexp.Regexp, len(toks))
	for i, t := range toks {
		if t.key == nil {
			continue
		}
		if err := checkParamPattern(template, t.key.Pattern); err != nil {
			return nil, err
		}
		expr := "^(?:" + t.key.Pattern + ")$"
		if !p.cfg.Sensitive {
			expr = "(?i)" + expr
		}
		checks[i] = regexp.MustCompile(expr)
	}

	return func(params Params) (string, error) {
		var b strings.Builder
		for i, t := range toks {
			if t.key == nil {
				b.WriteString(t.lit)
				continue
			}
			k := t.key
			v := params[k.Name]
			if v == "" {
				if k.Optional {
					continue
				}
				return "", fmt.Errorf("numbat: missing parameter %q rendering %q", k.Name, template)
			}
			values := []string{v}
			if k.Repeat {
				values = strings.Split(v, "/")
			}
			for j, seg := range values {
				if !checks[i].MatchString(seg) {
					return "", fmt.Errorf("numbat: parameter %q value %q does not match %q", k.Name, seg, k.Pattern)
				}
				if j == 0 || k.Prefix != "" {
					b.WriteString(k.Prefix)
				} else {
					b.WriteString("/")
				}
				b.WriteString(escapePath(seg))
			}
		}
		return b.String(), nil
	}, nil
}

// RouteBase returns template up to its first bare "*" wildcard. Escaped
// asterisks, repeat modifiers and asterisks inside custom expressions are
// kept. Unparsable templates are returned unchanged.
func (p *Patterns) RouteBase(template string) string {
	toks, err := parseTemplate(template)
	if err != nil {
		return template
	}
	for _, t := range toks {
		if t.wildcard {
			return template[:t.start]
		}
	}
	return template
}

// parseTemplate splits template into literal and parameter tokens.
func parseTemplate(tpl string) ([]token, error) {
	if tpl == "" || tpl[0] != '/' {
		return nil, invalidPattern(tpl, 0, `template must start with "/"`)
	}

	var (
		toks  []token
		lit   strings.Builder
		names = map[string]struct{}{}
		anon  int
	)
	flush := func() {
		if lit.Len() > 0 {
			toks = append(toks, token{lit: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(tpl); {
		c := tpl[i]
		switch c {
		case '\\':
			if i+1 >= len(tpl) {
				return nil, invalidPattern(tpl, i, "dangling escape")
			}
			lit.WriteByte(tpl[i+1])
			i += 2
		case '[', ']', '{', '}':
			return nil, invalidPattern(tpl, i, fmt.Sprintf("reserved character %q", c))
		case ')':
			return nil, invalidPattern(tpl, i, "unbalanced parentheses")
		case '?', '+':
			return nil, invalidPattern(tpl, i, fmt.Sprintf("modifier %q must follow a parameter", c))
		case ':', '(', '*':
			start := i
			var name, pattern string
			if c == ':' {
				j := i + 1
				for j < len(tpl) && isNameByte(tpl[j]) {
					j++
				}
				name = tpl[i+1 : j]
				if name == "" {
					return nil, invalidPattern(tpl, i, "missing parameter name")
				}
				if _, dup := names[name]; dup {
					return nil, invalidPattern(tpl, i, fmt.Sprintf("duplicate parameter %q", name))
				}
				names[name] = struct{}{}
				i = j
			}
			if c == '*' {
				pattern = ".*"
				i++
			} else if i < len(tpl) && tpl[i] == '(' {
				g, end, err := readGroup(tpl, i)
				if err != nil {
					return nil, err
				}
				pattern, i = g, end
			} else {
				pattern = defaultSegment
			}
			if name == "" {
				name = strconv.Itoa(anon)
				anon++
			}

			k := &Key{Name: name, Pattern: pattern}
			if c != '*' && i < len(tpl) {
				switch tpl[i] {
				case '?':
					k.Optional = true
					i++
				case '*':
					k.Optional, k.Repeat = true, true
					i++
				case '+':
					k.Repeat = true
					i++
				}
			}
			if s := lit.String(); strings.HasSuffix(s, "/") {
				k.Prefix = "/"
				lit.Reset()
				lit.WriteString(s[:len(s)-1])
			}
			flush()
			toks = append(toks, token{key: k, start: start, wildcard: c == '*'})
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return toks, nil
}

// readGroup returns the expression inside the parenthesised group opening at
// tpl[start] and the index just past its closing parenthesis.
func readGroup(tpl string, start int) (string, int, error) {
	depth := 1
	j := start + 1
	for ; j < len(tpl); j++ {
		switch tpl[j] {
		case '\\':
			j++
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			break
		}
	}
	if depth != 0 {
		return "", 0, invalidPattern(tpl, start, "unbalanced parentheses")
	}
	if j == start+1 {
		return "", 0, invalidPattern(tpl, start, "empty group")
	}
	return tpl[start+1 : j], j + 1, nil
}

func checkParamPattern(tpl, expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return &InvalidPatternError{Template: tpl, Pos: -1, Reason: fmt.Sprintf("bad parameter pattern %q", expr), Err: err}
	}
	if re.NumSubexp() > 0 {
		return invalidPattern(tpl, -1, "capturing groups are not allowed inside parameter patterns")
	}
	return nil
}

func isNameByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// escapePath escapes one segment; already escaped input is not escaped twice.
func escapePath(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		s = u
	}
	return url.PathEscape(s)
}
