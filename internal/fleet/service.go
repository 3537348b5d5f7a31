package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/git-global/internal/query"
	"github.com/temirov/git-global/internal/report"
	"github.com/temirov/git-global/internal/repos/cache"
	"github.com/temirov/git-global/internal/repos/discovery"
	"github.com/temirov/git-global/internal/repos/shared"
)

const (
	applicationDisplayNameConstant      = "git-global"
	infoHeaderTemplateConstant          = "%s %s"
	infoSeparatorConstant               = "=================="
	infoRepositoryCountTemplateConstant = "Number of repos: %d"
	infoBaseDirectoryTemplateConstant   = "Base directory: %s"
	infoFollowSymlinksTemplateConstant  = "Follow symlinks: %t"
	infoSameFilesystemTemplateConstant  = "Same filesystem: %t"
	infoCacheFileTemplateConstant       = "Cache file: %s"
	infoCacheAgeTemplateConstant        = "Cache file age: %s"
	infoIgnoredPatternsHeaderConstant   = "Ignored patterns:"
	infoDefaultCommandTemplateConstant  = "Default command: %s"
	infoShowUntrackedTemplateConstant   = "Show untracked: %t"
	infoParallelismTemplateConstant     = "Parallelism: %d"
	indentedPatternTemplateConstant     = "  %s"
	cacheAgeTemplateConstant            = "%dd, %dh, %dm, %ds"
	scanSummaryTemplateConstant         = "Found %d repos. Use `git global list` to show them."
	ignoreAddedTemplateConstant         = "Added '%s' to discovery.ignore in %s. Run `git global scan` to update the cache."
	ignoreDuplicateTemplateConstant     = "'%s' is already ignored in %s."
	ignoredEmptyMessageConstant         = "No repos are currently ignored."
	ignoredHeaderTemplateConstant       = "Ignored patterns (%d):"
	cacheMissingMessageConstant         = "repository cache not configured"
	runnerMissingMessageConstant        = "query runner not configured"
	ignoreEditorMissingMessageConstant  = "ignore pattern editor not configured"
	ignorePatternMissingMessageConstant = "ignore requires a non-empty pattern"
	logMessagePruningConstant           = "Pruning repositories missing from disk"
	logMessageRunningCommandConstant    = "Running fleet command"
	logMessageIgnoreRecordedConstant    = "Recorded ignore pattern"
	logFieldPatternConstant             = "pattern"
	logFieldChangedConstant             = "changed"
	logFieldCommandConstant             = "command"
	logFieldMissingRepositoriesConstant = "missing"
	logFieldRemainingRepositoryConstant = "remaining"
	logFieldConfigurationFileConstant   = "configuration_file"
	hoursPerDayConstant                 = 24
	minutesPerHourConstant              = 60
	secondsPerMinuteConstant            = 60
	unknownVersionConstant              = "dev"
)

var (
	// ErrRepositoryCacheNotConfigured indicates the service was constructed without a cache.
	ErrRepositoryCacheNotConfigured = errors.New(cacheMissingMessageConstant)
	// ErrQueryRunnerNotConfigured indicates the service was constructed without a query runner.
	ErrQueryRunnerNotConfigured = errors.New(runnerMissingMessageConstant)
	// ErrIgnoreEditorNotConfigured indicates the ignore command ran without an editor.
	ErrIgnoreEditorNotConfigured = errors.New(ignoreEditorMissingMessageConstant)
	// ErrIgnorePatternMissing indicates the ignore command received an empty pattern.
	ErrIgnorePatternMissing = errors.New(ignorePatternMissingMessageConstant)
)

// RepositoryCache provides the persisted repository set.
type RepositoryCache interface {
	LoadOrScan(executionContext context.Context, configuration discovery.DiscoveryConfig) ([]shared.RepositoryIdentity, error)
	Rescan(executionContext context.Context, configuration discovery.DiscoveryConfig) ([]shared.RepositoryIdentity, error)
	Prune(configuration discovery.DiscoveryConfig, repositories []shared.RepositoryIdentity, missing []shared.RepositoryIdentity) []shared.RepositoryIdentity
	Describe() cache.CacheInfo
}

// QueryRunner runs one query kind across a repository set.
type QueryRunner interface {
	Run(executionContext context.Context, repositories []shared.RepositoryIdentity, kind shared.QueryKind, options query.Options) (map[shared.RepositoryIdentity]shared.Outcome, error)
}

// IgnorePatternAppender records a new ignore pattern in a configuration file.
type IgnorePatternAppender interface {
	Append(filePath string, effectivePatterns []string, pattern string) (bool, error)
}

// Dependencies wires collaborators consumed by the Service.
type Dependencies struct {
	Logger       *zap.Logger
	Cache        RepositoryCache
	Runner       QueryRunner
	IgnoreEditor IgnorePatternAppender
	Clock        shared.Clock
}

// Metadata describes the running application for the info command.
type Metadata struct {
	Version               string
	ConfigurationFilePath string
}

// RunOptions selects the command and its per-invocation overrides.
type RunOptions struct {
	Kind          shared.QueryKind
	ShowUntracked bool
	Pattern       string
}

// Service dispatches fleet commands over the cached repository set.
type Service struct {
	logger        *zap.Logger
	configuration Configuration
	cache         RepositoryCache
	runner        QueryRunner
	ignoreEditor  IgnorePatternAppender
	clock         shared.Clock
	metadata      Metadata
}

// NewService validates dependencies and constructs a Service for a sanitized configuration.
func NewService(configuration Configuration, dependencies Dependencies, metadata Metadata) (*Service, error) {
	if dependencies.Cache == nil {
		return nil, ErrRepositoryCacheNotConfigured
	}
	if dependencies.Runner == nil {
		return nil, ErrQueryRunnerNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if len(strings.TrimSpace(metadata.Version)) == 0 {
		metadata.Version = unknownVersionConstant
	}

	return &Service{
		logger:        logger,
		configuration: configuration,
		cache:         dependencies.Cache,
		runner:        dependencies.Runner,
		ignoreEditor:  dependencies.IgnoreEditor,
		clock:         clock,
		metadata:      metadata,
	}, nil
}

// Run executes the requested command and returns its report.
func (service *Service) Run(executionContext context.Context, options RunOptions) (report.Report, error) {
	service.logger.Debug(logMessageRunningCommandConstant, zap.String(logFieldCommandConstant, string(options.Kind)))

	switch options.Kind {
	case shared.QueryKindScan:
		return service.scan(executionContext)
	case shared.QueryKindInfo:
		return service.info(executionContext)
	case shared.QueryKindIgnore:
		return service.ignore(options.Pattern)
	case shared.QueryKindIgnored:
		return service.ignored(), nil
	case shared.QueryKindStatus,
		shared.QueryKindStaged,
		shared.QueryKindUnstaged,
		shared.QueryKindStashed,
		shared.QueryKindAhead,
		shared.QueryKindList:
		return service.query(executionContext, options)
	default:
		return report.Report{}, shared.UnknownCommandError{Name: string(options.Kind)}
	}
}

func (service *Service) scan(executionContext context.Context) (report.Report, error) {
	repositories, scanError := service.cache.Rescan(executionContext, service.configuration.DiscoveryConfig())
	if scanError != nil {
		return report.Report{}, scanError
	}
	return report.NewMessageReport(shared.QueryKindScan, fmt.Sprintf(scanSummaryTemplateConstant, len(repositories))), nil
}

func (service *Service) info(executionContext context.Context) (report.Report, error) {
	repositories, loadError := service.cache.LoadOrScan(executionContext, service.configuration.DiscoveryConfig())
	if loadError != nil {
		return report.Report{}, loadError
	}

	infoReport := report.NewMessageReport(
		shared.QueryKindInfo,
		fmt.Sprintf(infoHeaderTemplateConstant, applicationDisplayNameConstant, service.metadata.Version),
		infoSeparatorConstant,
		fmt.Sprintf(infoRepositoryCountTemplateConstant, len(repositories)),
		fmt.Sprintf(infoBaseDirectoryTemplateConstant, service.configuration.Discovery.Root),
		fmt.Sprintf(infoFollowSymlinksTemplateConstant, service.configuration.Discovery.FollowSymlinks),
		fmt.Sprintf(infoSameFilesystemTemplateConstant, service.configuration.Discovery.SameFilesystem),
	)

	cacheInfo := service.cache.Describe()
	infoReport.AddMessage(fmt.Sprintf(infoCacheFileTemplateConstant, cacheInfo.FilePath))
	if cacheInfo.Exists {
		infoReport.AddMessage(fmt.Sprintf(infoCacheAgeTemplateConstant, FormatCacheAge(service.clock.Now().Sub(cacheInfo.ModifiedAt))))
	}

	infoReport.AddMessage(infoIgnoredPatternsHeaderConstant)
	for _, pattern := range service.configuration.Discovery.Ignore {
		infoReport.AddMessage(fmt.Sprintf(indentedPatternTemplateConstant, pattern))
	}

	infoReport.AddMessage(fmt.Sprintf(infoDefaultCommandTemplateConstant, service.configuration.Query.DefaultCommand))
	infoReport.AddMessage(fmt.Sprintf(infoShowUntrackedTemplateConstant, service.configuration.Query.ShowUntracked))
	infoReport.AddMessage(fmt.Sprintf(infoParallelismTemplateConstant, query.EffectiveParallelism(service.configuration.Query.Parallelism)))

	return infoReport, nil
}

func (service *Service) ignore(rawPattern string) (report.Report, error) {
	pattern := strings.TrimSpace(rawPattern)
	if len(pattern) == 0 {
		return report.Report{}, shared.ConfigurationError{Setting: ignoreKeyConstant, Err: ErrIgnorePatternMissing}
	}
	if service.ignoreEditor == nil {
		return report.Report{}, ErrIgnoreEditorNotConfigured
	}

	configurationFilePath := strings.TrimSpace(service.metadata.ConfigurationFilePath)
	if len(configurationFilePath) == 0 {
		defaultFilePath, defaultPathError := DefaultUserConfigurationFilePath()
		if defaultPathError != nil {
			return report.Report{}, defaultPathError
		}
		configurationFilePath = defaultFilePath
	}

	changed, appendError := service.ignoreEditor.Append(configurationFilePath, service.configuration.Discovery.Ignore, pattern)
	if appendError != nil {
		return report.Report{}, appendError
	}
	service.logger.Info(
		logMessageIgnoreRecordedConstant,
		zap.String(logFieldPatternConstant, pattern),
		zap.Bool(logFieldChangedConstant, changed),
		zap.String(logFieldConfigurationFileConstant, configurationFilePath),
	)

	if !changed {
		return report.NewMessageReport(shared.QueryKindIgnore, fmt.Sprintf(ignoreDuplicateTemplateConstant, pattern, configurationFilePath)), nil
	}
	return report.NewMessageReport(shared.QueryKindIgnore, fmt.Sprintf(ignoreAddedTemplateConstant, pattern, configurationFilePath)), nil
}

func (service *Service) ignored() report.Report {
	patterns := service.configuration.Discovery.Ignore
	if len(patterns) == 0 {
		return report.NewMessageReport(shared.QueryKindIgnored, ignoredEmptyMessageConstant)
	}

	ignoredReport := report.NewMessageReport(shared.QueryKindIgnored, fmt.Sprintf(ignoredHeaderTemplateConstant, len(patterns)))
	for _, pattern := range patterns {
		ignoredReport.AddMessage(fmt.Sprintf(indentedPatternTemplateConstant, pattern))
	}
	return ignoredReport
}

func (service *Service) query(executionContext context.Context, options RunOptions) (report.Report, error) {
	discoveryConfig := service.configuration.DiscoveryConfig()
	repositories, loadError := service.cache.LoadOrScan(executionContext, discoveryConfig)
	if loadError != nil {
		return report.Report{}, loadError
	}

	queryOptions := query.Options{
		Parallelism:   service.configuration.Query.Parallelism,
		Timeout:       service.configuration.Query.Timeout,
		ShowUntracked: options.ShowUntracked,
	}
	outcomes, runError := service.runner.Run(executionContext, repositories, options.Kind, queryOptions)
	if runError != nil {
		return report.Report{}, runError
	}

	queryReport := report.Aggregate(options.Kind, outcomes)
	missing := queryReport.MissingRepositories()
	if len(missing) > 0 {
		remaining := service.cache.Prune(discoveryConfig, repositories, missing)
		service.logger.Info(
			logMessagePruningConstant,
			zap.Int(logFieldMissingRepositoriesConstant, len(missing)),
			zap.Int(logFieldRemainingRepositoryConstant, len(remaining)),
		)
	}

	return queryReport, nil
}

// FormatCacheAge renders a duration as days, hours, minutes and seconds.
func FormatCacheAge(age time.Duration) string {
	if age < 0 {
		age = 0
	}
	totalSeconds := int64(age / time.Second)
	seconds := totalSeconds % secondsPerMinuteConstant
	totalMinutes := totalSeconds / secondsPerMinuteConstant
	minutes := totalMinutes % minutesPerHourConstant
	totalHours := totalMinutes / minutesPerHourConstant
	hours := totalHours % hoursPerDayConstant
	days := totalHours / hoursPerDayConstant
	return fmt.Sprintf(cacheAgeTemplateConstant, days, hours, minutes, seconds)
}
