package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/git-global/internal/repos/discovery"
	"github.com/temirov/git-global/internal/repos/filesystem"
	"github.com/temirov/git-global/internal/repos/shared"
)

const (
	applicationCacheDirectoryNameConstant = "git-global"
	defaultCacheFileNameConstant          = "repos.yaml"
	cacheDirectoryPermissionsConstant     = fs.FileMode(0o755)
	cacheFilePermissionsConstant          = fs.FileMode(0o644)
	temporaryFileInfixConstant            = ".tmp-"
	cacheFilePathMissingMessageConstant   = "cache file path not configured"
	cacheScannerMissingMessageConstant    = "repository scanner not configured"
	resolveCacheDirectoryTemplateConstant = "resolve user cache directory: %w"
	logMessageCacheHitConstant            = "Using cached repository list"
	logMessageCacheMissConstant           = "Repository cache is stale, rescanning"
	logMessageCacheUnreadableConstant     = "Repository cache could not be read"
	logMessageCacheUnwritableConstant     = "Repository cache could not be written"
	logMessageCachePrunedConstant         = "Removed missing repositories from cache"
	logFieldCacheFileConstant             = "cache_file"
	logFieldRepositoryCountConstant       = "repositories"
	logFieldReasonConstant                = "reason"
)

var (
	// ErrCacheFilePathNotConfigured indicates the cache was constructed without a file path.
	ErrCacheFilePathNotConfigured = errors.New(cacheFilePathMissingMessageConstant)
	// ErrScannerNotConfigured indicates the cache was constructed without a scanner.
	ErrScannerNotConfigured = errors.New(cacheScannerMissingMessageConstant)
)

// RepositoryScanner discovers repositories for a discovery configuration.
type RepositoryScanner interface {
	Scan(executionContext context.Context, configuration discovery.DiscoveryConfig) (discovery.Result, error)
}

// CacheInfo describes the cache file for diagnostics.
type CacheInfo struct {
	FilePath   string
	Exists     bool
	ModifiedAt time.Time
}

// RepoCache persists the discovered repository set keyed by the discovery configuration fingerprint.
type RepoCache struct {
	logger     *zap.Logger
	fileSystem shared.FileSystem
	scanner    RepositoryScanner
	clock      shared.Clock
	filePath   string
}

// DefaultCacheFilePath returns the cache location under the user cache directory.
func DefaultCacheFilePath() (string, error) {
	userCacheDirectory, cacheDirectoryError := os.UserCacheDir()
	if cacheDirectoryError != nil {
		return "", fmt.Errorf(resolveCacheDirectoryTemplateConstant, cacheDirectoryError)
	}
	return filepath.Join(userCacheDirectory, applicationCacheDirectoryNameConstant, defaultCacheFileNameConstant), nil
}

// NewRepoCache validates dependencies and constructs a RepoCache.
func NewRepoCache(logger *zap.Logger, fileSystem shared.FileSystem, scanner RepositoryScanner, clock shared.Clock, filePath string) (*RepoCache, error) {
	if len(filePath) == 0 {
		return nil, ErrCacheFilePathNotConfigured
	}
	if scanner == nil {
		return nil, ErrScannerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &RepoCache{
		logger:     logger,
		fileSystem: fileSystem,
		scanner:    scanner,
		clock:      clock,
		filePath:   filepath.Clean(filePath),
	}, nil
}

// FilePath returns the location of the cache file.
func (repoCache *RepoCache) FilePath() string {
	return repoCache.filePath
}

// LoadOrScan returns the cached repositories when the record matches the configuration, scanning otherwise.
func (repoCache *RepoCache) LoadOrScan(executionContext context.Context, configuration discovery.DiscoveryConfig) ([]shared.RepositoryIdentity, error) {
	fingerprint := configuration.Fingerprint()

	record, readError := repoCache.readRecord()
	if readError == nil {
		repositories, trustError := record.trustedRepositories(fingerprint)
		if trustError == nil {
			repoCache.logger.Debug(logMessageCacheHitConstant, zap.String(logFieldCacheFileConstant, repoCache.filePath), zap.Int(logFieldRepositoryCountConstant, len(repositories)))
			return repositories, nil
		}
		repoCache.logger.Debug(logMessageCacheMissConstant, zap.String(logFieldCacheFileConstant, repoCache.filePath), zap.String(logFieldReasonConstant, trustError.Error()))
	} else if !errors.Is(readError, fs.ErrNotExist) {
		repoCache.logger.Warn(logMessageCacheUnreadableConstant, zap.String(logFieldCacheFileConstant, repoCache.filePath), zap.Error(readError))
	}

	return repoCache.Rescan(executionContext, configuration)
}

// Rescan scans unconditionally and replaces the cache record. A failed scan leaves the record untouched.
func (repoCache *RepoCache) Rescan(executionContext context.Context, configuration discovery.DiscoveryConfig) ([]shared.RepositoryIdentity, error) {
	result, scanError := repoCache.scanner.Scan(executionContext, configuration)
	if scanError != nil {
		return nil, scanError
	}

	repositories := append([]shared.RepositoryIdentity{}, result.Repositories...)
	shared.SortRepositoryIdentities(repositories)

	repoCache.persist(newCacheRecord(configuration.Fingerprint(), result.Root, repoCache.clock.Now(), repositories))
	return repositories, nil
}

// Prune removes confirmed missing repositories from the set and persists the remainder under the same fingerprint.
func (repoCache *RepoCache) Prune(configuration discovery.DiscoveryConfig, repositories []shared.RepositoryIdentity, missing []shared.RepositoryIdentity) []shared.RepositoryIdentity {
	if len(missing) == 0 {
		return repositories
	}

	missingSet := make(map[string]struct{}, len(missing))
	for _, repository := range missing {
		missingSet[repository.Path] = struct{}{}
	}

	remaining := make([]shared.RepositoryIdentity, 0, len(repositories))
	for _, repository := range repositories {
		if _, isMissing := missingSet[repository.Path]; isMissing {
			continue
		}
		remaining = append(remaining, repository)
	}
	shared.SortRepositoryIdentities(remaining)

	root := configuration.Root
	if record, readError := repoCache.readRecord(); readError == nil && len(record.Root) > 0 {
		root = record.Root
	}

	repoCache.persist(newCacheRecord(configuration.Fingerprint(), root, repoCache.clock.Now(), remaining))
	repoCache.logger.Debug(logMessageCachePrunedConstant, zap.String(logFieldCacheFileConstant, repoCache.filePath), zap.Int(logFieldRepositoryCountConstant, len(repositories)-len(remaining)))
	return remaining
}

// Describe reports the cache file location and modification time.
func (repoCache *RepoCache) Describe() CacheInfo {
	information := CacheInfo{FilePath: repoCache.filePath}
	fileInfo, statError := repoCache.fileSystem.Stat(repoCache.filePath)
	if statError != nil {
		return information
	}
	information.Exists = true
	information.ModifiedAt = fileInfo.ModTime()
	return information
}

func (repoCache *RepoCache) readRecord() (CacheRecord, error) {
	contents, readError := repoCache.fileSystem.ReadFile(repoCache.filePath)
	if readError != nil {
		return CacheRecord{}, readError
	}
	return decodeCacheRecord(contents)
}

// persist writes the record through a temporary sibling file and a rename. Failures are logged.
func (repoCache *RepoCache) persist(record CacheRecord) {
	if writeError := repoCache.writeRecord(record); writeError != nil {
		repoCache.logger.Warn(logMessageCacheUnwritableConstant, zap.String(logFieldCacheFileConstant, repoCache.filePath), zap.Error(writeError))
	}
}

func (repoCache *RepoCache) writeRecord(record CacheRecord) error {
	contents, encodeError := encodeCacheRecord(record)
	if encodeError != nil {
		return encodeError
	}

	cacheDirectory := filepath.Dir(repoCache.filePath)
	if mkdirError := repoCache.fileSystem.MkdirAll(cacheDirectory, cacheDirectoryPermissionsConstant); mkdirError != nil {
		return mkdirError
	}

	temporaryPath := filepath.Join(
		cacheDirectory,
		"."+filepath.Base(repoCache.filePath)+temporaryFileInfixConstant+strconv.Itoa(os.Getpid())+"-"+strconv.FormatInt(time.Now().UnixNano(), 10),
	)
	if writeError := repoCache.fileSystem.WriteFile(temporaryPath, contents, cacheFilePermissionsConstant); writeError != nil {
		_ = repoCache.fileSystem.Remove(temporaryPath)
		return writeError
	}
	if renameError := repoCache.fileSystem.Rename(temporaryPath, repoCache.filePath); renameError != nil {
		_ = repoCache.fileSystem.Remove(temporaryPath)
		return renameError
	}
	return nil
}
