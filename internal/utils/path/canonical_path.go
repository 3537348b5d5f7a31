package pathutils

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	emptyPathErrorMessageConstant          = "path is empty"
	absolutePathErrorTemplateConstant      = "unable to resolve absolute path for %s: %w"
	symlinkResolutionErrorTemplateConstant = "unable to resolve symbolic links for %s: %w"
)

// ErrEmptyPath indicates a blank path was supplied for canonicalization.
var ErrEmptyPath = errors.New(emptyPathErrorMessageConstant)

// PathCanonicalizer turns user supplied paths into absolute, symlink-free, cleaned paths.
type PathCanonicalizer struct {
	homeExpander *HomeExpander
	evaluate     func(string) (string, error)
}

// NewPathCanonicalizer constructs a PathCanonicalizer backed by the operating system.
func NewPathCanonicalizer() *PathCanonicalizer {
	return NewPathCanonicalizerWithExpander(NewHomeExpander())
}

// NewPathCanonicalizerWithExpander constructs a PathCanonicalizer with a custom home expander.
func NewPathCanonicalizerWithExpander(expander *HomeExpander) *PathCanonicalizer {
	if expander == nil {
		expander = NewHomeExpander()
	}
	return &PathCanonicalizer{homeExpander: expander, evaluate: filepath.EvalSymlinks}
}

// Absolute trims, expands and cleans the candidate path without touching the filesystem.
func (canonicalizer *PathCanonicalizer) Absolute(candidatePath string) (string, error) {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return "", ErrEmptyPath
	}

	expandedPath := canonicalizer.expander().Expand(trimmedPath)
	absolutePath, absoluteError := filepath.Abs(expandedPath)
	if absoluteError != nil {
		return "", fmt.Errorf(absolutePathErrorTemplateConstant, expandedPath, absoluteError)
	}
	return filepath.Clean(absolutePath), nil
}

// Canonicalize returns the absolute path with every symbolic link resolved.
// The path must exist.
func (canonicalizer *PathCanonicalizer) Canonicalize(candidatePath string) (string, error) {
	absolutePath, absoluteError := canonicalizer.Absolute(candidatePath)
	if absoluteError != nil {
		return "", absoluteError
	}

	evaluate := filepath.EvalSymlinks
	if canonicalizer != nil && canonicalizer.evaluate != nil {
		evaluate = canonicalizer.evaluate
	}

	resolvedPath, resolveError := evaluate(absolutePath)
	if resolveError != nil {
		return "", fmt.Errorf(symlinkResolutionErrorTemplateConstant, absolutePath, resolveError)
	}
	return filepath.Clean(resolvedPath), nil
}

func (canonicalizer *PathCanonicalizer) expander() *HomeExpander {
	if canonicalizer == nil || canonicalizer.homeExpander == nil {
		return NewHomeExpander()
	}
	return canonicalizer.homeExpander
}
