package shared

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/temirov/git-global/internal/execshell"
)

const (
	repositoryPathEmptyMessageConstant          = "repository path is empty"
	repositoryPathRelativeTemplateConstant      = "repository path %q is not absolute"
	repositoryPathControlCharacterTemplateConst = "repository path %q contains control characters"
	queryKindUnknownTemplateConstant            = "unknown command %q"
)

// ErrEmptyRepositoryPath indicates a blank repository path.
var ErrEmptyRepositoryPath = errors.New(repositoryPathEmptyMessageConstant)

// RepositoryIdentity identifies one repository by the canonical absolute path of its working directory.
type RepositoryIdentity struct {
	Path string
}

// NewRepositoryIdentity validates and cleans a canonical repository path.
func NewRepositoryIdentity(raw string) (RepositoryIdentity, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return RepositoryIdentity{}, ErrEmptyRepositoryPath
	}
	if strings.ContainsAny(trimmed, "\n\r\x00") {
		return RepositoryIdentity{}, fmt.Errorf(repositoryPathControlCharacterTemplateConst, raw)
	}
	if !filepath.IsAbs(trimmed) {
		return RepositoryIdentity{}, fmt.Errorf(repositoryPathRelativeTemplateConstant, raw)
	}
	return RepositoryIdentity{Path: filepath.Clean(trimmed)}, nil
}

// String returns the canonical path.
func (identity RepositoryIdentity) String() string {
	return identity.Path
}

// Name returns the final path element, used as the display name in listings.
func (identity RepositoryIdentity) Name() string {
	return filepath.Base(identity.Path)
}

// SortRepositoryIdentities orders identities by canonical path in place.
func SortRepositoryIdentities(identities []RepositoryIdentity) {
	sort.Slice(identities, func(leftIndex int, rightIndex int) bool {
		return identities[leftIndex].Path < identities[rightIndex].Path
	})
}

// QueryKind enumerates the fleet operations understood by the dispatcher.
type QueryKind string

// Supported query kinds.
const (
	QueryKindStatus   QueryKind = "status"
	QueryKindStaged   QueryKind = "staged"
	QueryKindUnstaged QueryKind = "unstaged"
	QueryKindStashed  QueryKind = "stashed"
	QueryKindAhead    QueryKind = "ahead"
	QueryKindList     QueryKind = "list"
	QueryKindScan     QueryKind = "scan"
	QueryKindInfo     QueryKind = "info"
	QueryKindIgnore   QueryKind = "ignore"
	QueryKindIgnored  QueryKind = "ignored"
)

var queryKinds = []QueryKind{
	QueryKindStatus,
	QueryKindStaged,
	QueryKindUnstaged,
	QueryKindStashed,
	QueryKindAhead,
	QueryKindList,
	QueryKindScan,
	QueryKindInfo,
	QueryKindIgnore,
	QueryKindIgnored,
}

// QueryKinds returns every supported kind in presentation order.
func QueryKinds() []QueryKind {
	return append([]QueryKind{}, queryKinds...)
}

// ParseQueryKind maps a subcommand name onto a QueryKind.
func ParseQueryKind(raw string) (QueryKind, error) {
	normalized := QueryKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, candidate := range queryKinds {
		if candidate == normalized {
			return candidate, nil
		}
	}
	return "", UnknownCommandError{Name: raw}
}

// RunsPerRepository reports whether the kind is answered by inspecting every repository.
func (kind QueryKind) RunsPerRepository() bool {
	switch kind {
	case QueryKindScan, QueryKindInfo, QueryKindIgnore, QueryKindIgnored:
		return false
	default:
		return true
	}
}

// StatusLike reports whether the kind produces status-style lines per repository.
func (kind QueryKind) StatusLike() bool {
	switch kind {
	case QueryKindStatus, QueryKindStaged, QueryKindUnstaged, QueryKindStashed:
		return true
	default:
		return false
	}
}

// UnknownCommandError reports a subcommand name outside the supported set.
type UnknownCommandError struct {
	Name string
}

func (unknown UnknownCommandError) Error() string {
	return fmt.Sprintf(queryKindUnknownTemplateConstant, unknown.Name)
}

// ConfigurationError reports an invalid configuration that prevents the command from running.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", configurationError.Setting, configurationError.Err)
}

// Unwrap exposes the underlying cause.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Err
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FileSystem exposes the filesystem operations used by discovery and the repository cache.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	EvalSymlinks(path string) (string, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	Rename(oldPath string, newPath string) error
	Remove(path string) error
	MkdirAll(path string, permissions fs.FileMode) error
}

// GitExecutor exposes the subset of shell execution used by repository inspection.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}
