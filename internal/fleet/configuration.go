package fleet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/temirov/git-global/internal/report"
	"github.com/temirov/git-global/internal/repos/cache"
	"github.com/temirov/git-global/internal/repos/discovery"
	"github.com/temirov/git-global/internal/repos/shared"
	pathutils "github.com/temirov/git-global/internal/utils/path"
)

const (
	defaultRootConstant                    = "~"
	defaultIgnorePatternConstant           = ".cargo"
	settingDiscoveryRootConstant           = "discovery.root"
	settingDiscoveryFollowSymlinksConstant = "discovery.follow_symlinks"
	settingDiscoverySameFilesystemConstant = "discovery.same_filesystem"
	settingDiscoveryIgnoreConstant         = "discovery.ignore"
	settingShowUntrackedConstant           = "query.show_untracked"
	settingCacheFileConstant               = "cache.file"
	settingDefaultCommandConstant          = "query.default_command"
	settingOutputConstant                  = "query.output"
	settingParallelismConstant             = "query.parallelism"
	settingTimeoutConstant                 = "query.timeout"
	negativeValueTemplateConstant          = "must not be negative, got %v"
	defaultCommandArgumentTemplateConstant = "%q requires an argument and cannot be the default command"
)

// DiscoveryConfiguration controls repository discovery.
type DiscoveryConfiguration struct {
	Root           string   `mapstructure:"root"`
	FollowSymlinks bool     `mapstructure:"follow_symlinks"`
	SameFilesystem bool     `mapstructure:"same_filesystem"`
	Ignore         []string `mapstructure:"ignore"`
}

// CacheConfiguration controls where the repository cache lives.
type CacheConfiguration struct {
	File string `mapstructure:"file"`
}

// QueryConfiguration controls query execution and output.
type QueryConfiguration struct {
	DefaultCommand string        `mapstructure:"default_command"`
	ShowUntracked  bool          `mapstructure:"show_untracked"`
	Output         string        `mapstructure:"output"`
	Parallelism    int           `mapstructure:"parallelism"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Configuration groups the settings consumed by fleet commands.
type Configuration struct {
	Discovery DiscoveryConfiguration `mapstructure:"discovery"`
	Cache     CacheConfiguration     `mapstructure:"cache"`
	Query     QueryConfiguration     `mapstructure:"query"`
}

// DefaultConfiguration returns baseline configuration values.
func DefaultConfiguration() Configuration {
	return Configuration{
		Discovery: DiscoveryConfiguration{
			Root:   defaultRootConstant,
			Ignore: []string{defaultIgnorePatternConstant},
		},
		Query: QueryConfiguration{
			DefaultCommand: string(shared.QueryKindStatus),
			Output:         string(report.FormatText),
		},
	}
}

// DefaultConfigurationValues exposes the defaults keyed by configuration path so environment overrides resolve.
func DefaultConfigurationValues() map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		settingDiscoveryRootConstant:           defaults.Discovery.Root,
		settingDiscoveryFollowSymlinksConstant: defaults.Discovery.FollowSymlinks,
		settingDiscoverySameFilesystemConstant: defaults.Discovery.SameFilesystem,
		settingDiscoveryIgnoreConstant:         append([]string{}, defaults.Discovery.Ignore...),
		settingCacheFileConstant:               defaults.Cache.File,
		settingDefaultCommandConstant:          defaults.Query.DefaultCommand,
		settingShowUntrackedConstant:           defaults.Query.ShowUntracked,
		settingOutputConstant:                  defaults.Query.Output,
		settingParallelismConstant:             defaults.Query.Parallelism,
		settingTimeoutConstant:                 defaults.Query.Timeout.String(),
	}
}

// Sanitize trims values, expands home shortcuts and validates settings.
func (configuration Configuration) Sanitize(expander *pathutils.HomeExpander) (Configuration, error) {
	sanitized := configuration
	canonicalizer := pathutils.NewPathCanonicalizerWithExpander(expander)

	root := strings.TrimSpace(configuration.Discovery.Root)
	if len(root) == 0 {
		root = defaultRootConstant
	}
	absoluteRoot, rootError := canonicalizer.Absolute(root)
	if rootError != nil {
		return Configuration{}, shared.ConfigurationError{Setting: settingDiscoveryRootConstant, Err: rootError}
	}
	sanitized.Discovery.Root = absoluteRoot
	sanitized.Discovery.Ignore = sanitizePatterns(configuration.Discovery.Ignore)

	cacheFile := strings.TrimSpace(configuration.Cache.File)
	if len(cacheFile) == 0 {
		defaultCacheFile, cacheFileError := cache.DefaultCacheFilePath()
		if cacheFileError != nil {
			return Configuration{}, shared.ConfigurationError{Setting: settingCacheFileConstant, Err: cacheFileError}
		}
		cacheFile = defaultCacheFile
	}
	absoluteCacheFile, cacheFileError := canonicalizer.Absolute(cacheFile)
	if cacheFileError != nil {
		return Configuration{}, shared.ConfigurationError{Setting: settingCacheFileConstant, Err: cacheFileError}
	}
	sanitized.Cache.File = absoluteCacheFile

	defaultCommand := strings.TrimSpace(configuration.Query.DefaultCommand)
	if len(defaultCommand) == 0 {
		defaultCommand = string(shared.QueryKindStatus)
	}
	defaultKind, kindError := shared.ParseQueryKind(defaultCommand)
	if kindError != nil {
		return Configuration{}, shared.ConfigurationError{Setting: settingDefaultCommandConstant, Err: kindError}
	}
	if defaultKind == shared.QueryKindIgnore {
		return Configuration{}, shared.ConfigurationError{Setting: settingDefaultCommandConstant, Err: fmt.Errorf(defaultCommandArgumentTemplateConstant, defaultKind)}
	}
	sanitized.Query.DefaultCommand = string(defaultKind)

	outputFormat, formatError := report.ParseFormat(configuration.Query.Output)
	if formatError != nil {
		return Configuration{}, shared.ConfigurationError{Setting: settingOutputConstant, Err: formatError}
	}
	sanitized.Query.Output = string(outputFormat)

	if configuration.Query.Parallelism < 0 {
		return Configuration{}, shared.ConfigurationError{Setting: settingParallelismConstant, Err: fmt.Errorf(negativeValueTemplateConstant, configuration.Query.Parallelism)}
	}
	if configuration.Query.Timeout < 0 {
		return Configuration{}, shared.ConfigurationError{Setting: settingTimeoutConstant, Err: fmt.Errorf(negativeValueTemplateConstant, configuration.Query.Timeout)}
	}

	return sanitized, nil
}

// DiscoveryConfig converts the discovery settings into a scanner configuration.
func (configuration Configuration) DiscoveryConfig() discovery.DiscoveryConfig {
	return discovery.DiscoveryConfig{
		Root:           configuration.Discovery.Root,
		FollowSymlinks: configuration.Discovery.FollowSymlinks,
		SameFilesystem: configuration.Discovery.SameFilesystem,
		IgnorePatterns: append([]string{}, configuration.Discovery.Ignore...),
	}
}

// DefaultUserConfigurationFilePath returns the configuration file edited by the ignore command
// when no configuration file was loaded.
func DefaultUserConfigurationFilePath() (string, error) {
	userConfigDirectory, configDirectoryError := os.UserConfigDir()
	if configDirectoryError != nil {
		return "", errors.Join(errUserConfigurationDirectoryUnavailable, configDirectoryError)
	}
	return filepath.Join(userConfigDirectory, applicationDirectoryNameConstant, userConfigurationFileNameConstant), nil
}

func sanitizePatterns(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, pattern := range raw {
		trimmed := strings.TrimSpace(pattern)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
