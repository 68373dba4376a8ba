package pathtransform

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
)

// Rule rewrites the first match of a search pattern in a file path.
type Rule struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`

	pattern    *regexp.Regexp
	compileErr error
}

// Broken reports whether the rule's search pattern failed to compile. Broken
// rules are kept for diagnostics but skipped when applying.
func (r *Rule) Broken() bool {
	return r.compileErr != nil
}

// Set is an ordered list of path transform rules.
type Set struct {
	rules  []*Rule
	logger log.Logger
}

var (
	pipeSeparatorPattern = regexp.MustCompile(`\|\s*`)
	bareKeyPattern       = regexp.MustCompile(`["']?\b(search|replace)\b["']?\s*:`)
	singleQuotedPattern  = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'`)
)

// New parses a transform configuration into a rule set. The configuration is
// either JSON (an array or a single object with search/replace fields) or
// the compact form {search: '<pattern>'| replace: '<replacement>'} with
// blocks separated by pipes. An empty configuration yields an empty set.
//
// Search patterns compile once, here; a pattern that does not compile keeps
// its rule in the set as broken instead of failing the whole configuration.
func New(config string, logger log.Logger) (*Set, error) {
	config = strings.TrimSpace(config)
	if config == "" {
		return &Set{logger: logger}, nil
	}

	arrayInput := strings.HasPrefix(config, "[")

	var rules []*Rule
	if err := json.Unmarshal([]byte(normalize(config)), &rules); err != nil {
		return nil, fmt.Errorf("failed to parse file path transforms (%s): %s", config, err)
	}

	for i, rule := range rules {
		if rule.Search == "" || rule.Replace == "" {
			if arrayInput {
				return nil, fmt.Errorf("file path transform rule #%d needs both a search and a replace value", i)
			}
			return nil, fmt.Errorf("a file path transform rule needs both a search and a replace value")
		}

		rule.pattern, rule.compileErr = regexp.Compile(rule.Search)
		if rule.compileErr != nil {
			logger.Debugf("Skipping file path transform rule #%d, the search pattern does not compile: %s", i, rule.compileErr)
			rule.pattern = nil
		}
	}

	return &Set{rules: rules, logger: logger}, nil
}

// normalize turns the compact syntax into parseable JSON. The steps run in
// this order: pipes become commas, the bareword search/replace keys get
// quoted, single-quoted values become double-quoted with backslashes
// doubled, and the whole string is wrapped in a JSON array if it is not one
// already.
func normalize(config string) string {
	config = strings.Join(pipeSeparatorPattern.Split(config, -1), ",")
	config = bareKeyPattern.ReplaceAllString(config, `"$1":`)
	config = singleQuotedPattern.ReplaceAllStringFunc(config, func(quoted string) string {
		content := quoted[1 : len(quoted)-1]
		return `"` + strings.ReplaceAll(content, `\`, `\\`) + `"`
	})

	if !strings.HasPrefix(config, "[") {
		config = "[" + config + "]"
	}
	return config
}

// Apply runs every rule in order on the given path, each rule's output
// feeding the next rule's input. A rule replaces the first match of its
// pattern; broken rules are skipped.
func (s *Set) Apply(path string) string {
	for _, rule := range s.rules {
		if rule.pattern == nil {
			continue
		}
		path = replaceFirst(rule.pattern, path, rule.Replace)
	}
	return path
}

// Len ...
func (s *Set) Len() int {
	return len(s.rules)
}

func replaceFirst(pattern *regexp.Regexp, s, replacement string) string {
	match := pattern.FindStringSubmatchIndex(s)
	if match == nil {
		return s
	}
	expanded := pattern.ExpandString(nil, replacement, s, match)
	return s[:match[0]] + string(expanded) + s[match[1]:]
}
