/*
Copyright 2026 The EdgeKit Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package glob implements the wildcard pattern matcher shared by resource
// patterns and WildcardCapable attribute matching. A pattern is a plain
// string with optional '*' (any run of characters, including none) and,
// when Options.QuestionMark is set, '?' (exactly one character).
//
// The implementation follows the same strategy as a glob-to-regexp compiler:
// quote the pattern as a regexp literal, then unquote the wildcard
// metacharacters back into their regexp equivalents, anchor the result, and
// let the standard regexp engine do the matching. This handles adjacent
// wildcards ("**"), leading/trailing wildcards, and substring matches
// uniformly, without a hand-rolled state machine.
package glob

import (
	"regexp"
	"strings"
	"sync"
)

// Options configures the matcher.
type Options struct {
	// QuestionMark enables '?' to match exactly one character. Disabled by
	// default; callers that need it opt in explicitly.
	QuestionMark bool
}

var (
	compileMu    sync.Mutex
	compileCache = map[string]*regexp.Regexp{}

	starRun = regexp.MustCompile(`(?:\\\*)+`)
)

// Matches reports whether input satisfies pattern.
//
//   - ""   matches only ""
//   - "*"  matches anything, including ""
//   - "*x" matches any string ending in "x" (suffix match)
//   - "x*" matches any string beginning with "x" (prefix match)
//   - "*x*" matches any string containing "x" (substring match, "x" non-empty)
//   - no '*' present: literal equality
//
// Multiple adjacent '*' collapse to the same meaning as a single '*'.
func Matches(pattern, input string, opts Options) bool {
	return compile(pattern, opts).MatchString(input)
}

func compile(pattern string, opts Options) *regexp.Regexp {
	key := pattern
	if opts.QuestionMark {
		key = "?" + pattern
	}

	compileMu.Lock()
	if re, ok := compileCache[key]; ok {
		compileMu.Unlock()
		return re
	}
	compileMu.Unlock()

	re := regexp.MustCompile("^" + toRegexpBody(pattern, opts) + "$")

	compileMu.Lock()
	compileCache[key] = re
	compileMu.Unlock()
	return re
}

// toRegexpBody quotes pattern as a literal regexp and substitutes the glob
// metacharacters for their regexp equivalents, collapsing any run of
// adjacent '*' into one ".*".
func toRegexpBody(pattern string, opts Options) string {
	quoted := regexp.QuoteMeta(pattern)
	quoted = starRun.ReplaceAllString(quoted, ".*")
	if opts.QuestionMark {
		quoted = strings.ReplaceAll(quoted, `\?`, ".")
	}
	return quoted
}
