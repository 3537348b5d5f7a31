package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/git-global/internal/repos/filesystem"
	"github.com/temirov/git-global/internal/repos/shared"
	pathutils "github.com/temirov/git-global/internal/utils/path"
)

const (
	gitMetadataEntryNameConstant            = ".git"
	currentDirectoryConstant                = "."
	parentDirectoryConstant                 = ".."
	rootSettingNameConstant                 = "discovery.root"
	rootNotDirectoryTemplateConstant        = "%s is not a directory"
	logMessageScanStartedConstant           = "Scanning for repositories"
	logMessageScanCompletedConstant         = "Repository scan completed"
	logMessageDirectoryUnreadableConstant   = "Skipping unreadable directory"
	logMessageSymlinkUnresolvableConstant   = "Skipping unresolvable symbolic link"
	logMessageDeviceUnavailableConstant     = "Device identifier unavailable, filesystem boundary not enforced"
	logFieldRootConstant                    = "root"
	logFieldPathConstant                    = "path"
	logFieldRepositoryCountConstant         = "repositories"
	deviceIdentifierUnsupportedMessageConst = "device identifiers are not supported on this platform"
)

var errDeviceIdentifierUnsupported = errors.New(deviceIdentifierUnsupportedMessageConst)

// DeviceIdentifier returns the identifier of the filesystem device holding the path.
type DeviceIdentifier func(path string) (uint64, error)

// Result lists the repositories found beneath a canonical root.
type Result struct {
	Root         string
	Repositories []shared.RepositoryIdentity
}

// Scanner discovers git repositories beneath a root directory.
type Scanner struct {
	logger           *zap.Logger
	fileSystem       shared.FileSystem
	deviceIdentifier DeviceIdentifier
	canonicalizer    *pathutils.PathCanonicalizer
}

// NewScanner constructs a Scanner. Nil collaborators fall back to operating system defaults.
func NewScanner(logger *zap.Logger, fileSystem shared.FileSystem, deviceIdentifier DeviceIdentifier) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	if deviceIdentifier == nil {
		deviceIdentifier = systemDeviceIdentifier
	}
	return &Scanner{
		logger:           logger,
		fileSystem:       fileSystem,
		deviceIdentifier: deviceIdentifier,
		canonicalizer:    pathutils.NewPathCanonicalizer(),
	}
}

type scanState struct {
	root          string
	configuration DiscoveryConfig
	ignore        ignoreMatcher
	rootDevice    uint64
	checkDevice   bool
	visited       map[string]struct{}
	repositories  map[string]struct{}
}

// Scan walks the configured root and returns every repository found, sorted by canonical path.
// Unreadable directories are skipped. A missing root yields a shared.ConfigurationError.
func (scanner *Scanner) Scan(executionContext context.Context, configuration DiscoveryConfig) (Result, error) {
	canonicalRoot, rootError := scanner.resolveRoot(configuration.Root)
	if rootError != nil {
		return Result{}, shared.ConfigurationError{Setting: rootSettingNameConstant, Err: rootError}
	}

	scanner.logger.Debug(logMessageScanStartedConstant, zap.String(logFieldRootConstant, canonicalRoot))

	state := &scanState{
		root:          canonicalRoot,
		configuration: configuration,
		ignore:        newIgnoreMatcher(configuration.IgnorePatterns),
		visited:       make(map[string]struct{}),
		repositories:  make(map[string]struct{}),
	}
	if configuration.SameFilesystem {
		rootDevice, deviceError := scanner.deviceIdentifier(canonicalRoot)
		if deviceError != nil {
			scanner.logger.Debug(logMessageDeviceUnavailableConstant, zap.String(logFieldRootConstant, canonicalRoot), zap.Error(deviceError))
		} else {
			state.rootDevice = rootDevice
			state.checkDevice = true
		}
	}

	if walkError := scanner.walk(executionContext, state, canonicalRoot, nil); walkError != nil {
		return Result{}, walkError
	}

	repositories := make([]shared.RepositoryIdentity, 0, len(state.repositories))
	for repositoryPath := range state.repositories {
		repositories = append(repositories, shared.RepositoryIdentity{Path: repositoryPath})
	}
	shared.SortRepositoryIdentities(repositories)

	scanner.logger.Debug(logMessageScanCompletedConstant, zap.String(logFieldRootConstant, canonicalRoot), zap.Int(logFieldRepositoryCountConstant, len(repositories)))
	return Result{Root: canonicalRoot, Repositories: repositories}, nil
}

func (scanner *Scanner) resolveRoot(root string) (string, error) {
	absoluteRoot, absoluteError := scanner.canonicalizer.Absolute(root)
	if absoluteError != nil {
		return "", absoluteError
	}
	canonicalRoot, resolveError := scanner.fileSystem.EvalSymlinks(absoluteRoot)
	if resolveError != nil {
		return "", resolveError
	}
	canonicalRoot = filepath.Clean(canonicalRoot)

	rootInfo, statError := scanner.fileSystem.Stat(canonicalRoot)
	if statError != nil {
		return "", statError
	}
	if !rootInfo.IsDir() {
		return "", fmt.Errorf(rootNotDirectoryTemplateConstant, canonicalRoot)
	}
	return canonicalRoot, nil
}

func (scanner *Scanner) walk(executionContext context.Context, state *scanState, directoryPath string, relativeSegments []string) error {
	if contextError := executionContext.Err(); contextError != nil {
		return contextError
	}
	if _, alreadyVisited := state.visited[directoryPath]; alreadyVisited {
		return nil
	}

	// A followed link is excluded when either its alias or its target is ignored.
	if state.ignore.ignoresDirectory(relativeSegments) || state.ignore.ignoresDirectory(state.rootRelativeSegments(directoryPath)) {
		return nil
	}
	if state.checkDevice && !scanner.onRootDevice(state, directoryPath) {
		return nil
	}
	state.visited[directoryPath] = struct{}{}

	if scanner.containsGitMetadata(directoryPath) {
		state.repositories[directoryPath] = struct{}{}
		return nil
	}

	entries, readError := scanner.fileSystem.ReadDir(directoryPath)
	if readError != nil {
		scanner.logger.Debug(logMessageDirectoryUnreadableConstant, zap.String(logFieldPathConstant, directoryPath), zap.Error(readError))
		return nil
	}

	for _, entry := range entries {
		childPath := filepath.Join(directoryPath, entry.Name())
		childSegments := append(append(make([]string, 0, len(relativeSegments)+1), relativeSegments...), entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			if !state.configuration.FollowSymlinks {
				continue
			}
			targetPath, followable := scanner.resolveSymlinkedDirectory(childPath)
			if !followable {
				continue
			}
			childPath = targetPath
		} else if !entry.IsDir() {
			continue
		}

		if walkError := scanner.walk(executionContext, state, childPath, childSegments); walkError != nil {
			return walkError
		}
	}
	return nil
}

// rootRelativeSegments splits the path below the scan root. Paths outside the root yield nil.
func (state *scanState) rootRelativeSegments(directoryPath string) []string {
	relativePath, relativeError := filepath.Rel(state.root, directoryPath)
	if relativeError != nil || relativePath == currentDirectoryConstant {
		return nil
	}
	if relativePath == parentDirectoryConstant || strings.HasPrefix(relativePath, parentDirectoryConstant+string(filepath.Separator)) {
		return nil
	}
	return strings.Split(relativePath, string(filepath.Separator))
}

func (scanner *Scanner) resolveSymlinkedDirectory(linkPath string) (string, bool) {
	targetPath, resolveError := scanner.fileSystem.EvalSymlinks(linkPath)
	if resolveError != nil {
		scanner.logger.Debug(logMessageSymlinkUnresolvableConstant, zap.String(logFieldPathConstant, linkPath), zap.Error(resolveError))
		return "", false
	}
	targetInfo, statError := scanner.fileSystem.Stat(targetPath)
	if statError != nil || !targetInfo.IsDir() {
		return "", false
	}
	return filepath.Clean(targetPath), true
}

func (scanner *Scanner) onRootDevice(state *scanState, directoryPath string) bool {
	device, deviceError := scanner.deviceIdentifier(directoryPath)
	if deviceError != nil {
		scanner.logger.Debug(logMessageDirectoryUnreadableConstant, zap.String(logFieldPathConstant, directoryPath), zap.Error(deviceError))
		return false
	}
	return device == state.rootDevice
}

func (scanner *Scanner) containsGitMetadata(directoryPath string) bool {
	_, statError := scanner.fileSystem.Lstat(filepath.Join(directoryPath, gitMetadataEntryNameConstant))
	return statError == nil
}
