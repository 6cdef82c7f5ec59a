// Package matcher implements the file matcher and MIME-override filters
// (§4.4): a size + glob filter applied before a redaction plan is built.
// Globs are anchored with github.com/bmatcuk/doublestar/v4, grounded on
// standardbeagle/lci's use of the same package for path-glob matching
// over relative, forward-slash-separated paths.
package matcher

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/redacter/dlpcopy/internal/model"
)

// Result is the three-way outcome of matching a file reference.
type Result int

const (
	Matched Result = iota
	SkippedDueToSize
	SkippedDueToName
)

// Matcher applies an optional size ceiling and an optional filename glob.
// Size is checked first per §4.4. Either check is skipped if its
// corresponding option is absent.
type Matcher struct {
	glob         string
	hasGlob      bool
	maxSizeLimit *int64
}

// New builds a Matcher. glob may be "" to disable the name check.
func New(glob string, maxSizeLimit *int64) Matcher {
	return Matcher{glob: glob, hasGlob: glob != "", maxSizeLimit: maxSizeLimit}
}

// Matches evaluates ref against the size then name checks.
func (m Matcher) Matches(ref model.FileSystemRef) Result {
	if m.maxSizeLimit != nil && ref.FileSize != nil && *ref.FileSize > *m.maxSizeLimit {
		return SkippedDueToSize
	}
	if m.hasGlob {
		ok, err := doublestar.Match(m.glob, string(ref.RelativePath))
		if err != nil || !ok {
			return SkippedDueToName
		}
	}
	return Matched
}

// MimeOverrideRule is one `glob=mime` pair, evaluated in order.
type MimeOverrideRule struct {
	Glob string
	Mime string
}

// MimeOverride reassigns a file's declared media type by the first
// matching glob, leaving the ref untouched otherwise (§4.4, and
// file_mime_override.rs in the original for the first-match-wins order).
type MimeOverride struct {
	rules []MimeOverrideRule
}

// NewMimeOverride builds a MimeOverride from ordered rules.
func NewMimeOverride(rules []MimeOverrideRule) MimeOverride {
	return MimeOverride{rules: rules}
}

// Apply returns ref with MediaType replaced by the first matching rule's
// Mime, or ref unchanged if no rule matches.
func (o MimeOverride) Apply(ref model.FileSystemRef) model.FileSystemRef {
	for _, rule := range o.rules {
		ok, err := doublestar.Match(rule.Glob, string(ref.RelativePath))
		if err == nil && ok {
			ref.MediaType = rule.Mime
			return ref
		}
	}
	return ref
}
