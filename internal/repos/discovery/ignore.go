package discovery

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const ignoreCommentPrefixConstant = "#"

// ignoreMatcher applies gitignore-syntax patterns to paths relative to the scan root.
type ignoreMatcher struct {
	matcher gitignore.Matcher
	empty   bool
}

func newIgnoreMatcher(patterns []string) ignoreMatcher {
	parsedPatterns := make([]gitignore.Pattern, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if len(trimmedPattern) == 0 || strings.HasPrefix(trimmedPattern, ignoreCommentPrefixConstant) {
			continue
		}
		parsedPatterns = append(parsedPatterns, gitignore.ParsePattern(trimmedPattern, nil))
	}
	return ignoreMatcher{matcher: gitignore.NewMatcher(parsedPatterns), empty: len(parsedPatterns) == 0}
}

// ignoresDirectory reports whether the directory at the relative segments is excluded.
// The root itself is never excluded.
func (matcher ignoreMatcher) ignoresDirectory(relativeSegments []string) bool {
	if matcher.empty || len(relativeSegments) == 0 {
		return false
	}
	return matcher.matcher.Match(relativeSegments, true)
}
