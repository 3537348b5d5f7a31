package fleet

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/git-global/internal/query"
	"github.com/temirov/git-global/internal/report"
	"github.com/temirov/git-global/internal/repos/cache"
	"github.com/temirov/git-global/internal/repos/dependencies"
	"github.com/temirov/git-global/internal/repos/shared"
	"github.com/temirov/git-global/internal/utils"
	flagutils "github.com/temirov/git-global/internal/utils/flags"
	pathutils "github.com/temirov/git-global/internal/utils/path"
)

const (
	ignoreUseConstant = "ignore <pattern>"
)

var commandDescriptions = map[shared.QueryKind]string{
	shared.QueryKindStatus:   "Show porcelain status for repos with any changes",
	shared.QueryKindStaged:   "Show index status for repos with staged changes",
	shared.QueryKindUnstaged: "Show working tree status for repos with unstaged changes",
	shared.QueryKindStashed:  "Show repos with stashed changes",
	shared.QueryKindAhead:    "Show repos with branches ahead of their upstream",
	shared.QueryKindList:     "List all known repos",
	shared.QueryKindScan:     "Rescan the discovery root and update the repo cache",
	shared.QueryKindInfo:     "Show meta-information about git-global",
	shared.QueryKindIgnore:   "Add a pattern to discovery.ignore in the configuration file",
	shared.QueryKindIgnored:  "List configured ignore patterns",
}

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the fleet subcommands.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() Configuration
	VersionProvider       func() string
	FileSystem            shared.FileSystem
	GitExecutor           shared.GitExecutor
	Scanner               cache.RepositoryScanner
	Inspector             query.RepositoryInspector
	Clock                 shared.Clock
	HomeExpander          *pathutils.HomeExpander
}

// Build constructs one subcommand per supported kind.
func (builder *CommandBuilder) Build() []*cobra.Command {
	kinds := shared.QueryKinds()
	commands := make([]*cobra.Command, 0, len(kinds))
	for _, kind := range kinds {
		commands = append(commands, builder.buildKindCommand(kind))
	}
	return commands
}

// RunDefault executes the configured default command.
func (builder *CommandBuilder) RunDefault(command *cobra.Command, arguments []string) error {
	configuration, configurationError := builder.resolveConfiguration()
	if configurationError != nil {
		return configurationError
	}
	defaultKind, kindError := shared.ParseQueryKind(configuration.Query.DefaultCommand)
	if kindError != nil {
		return kindError
	}
	return builder.execute(command, configuration, RunOptions{Kind: defaultKind})
}

func (builder *CommandBuilder) buildKindCommand(kind shared.QueryKind) *cobra.Command {
	command := &cobra.Command{
		Use:   string(kind),
		Short: commandDescriptions[kind],
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			configuration, configurationError := builder.resolveConfiguration()
			if configurationError != nil {
				return configurationError
			}
			options := RunOptions{Kind: kind}
			if len(arguments) > 0 {
				options.Pattern = arguments[0]
			}
			return builder.execute(command, configuration, options)
		},
	}
	if kind == shared.QueryKindIgnore {
		command.Use = ignoreUseConstant
		command.Args = cobra.ExactArgs(1)
	}
	return command
}

func (builder *CommandBuilder) execute(command *cobra.Command, configuration Configuration, options RunOptions) error {
	logger := resolveLogger(builder.LoggerProvider)
	options.ShowUntracked = flagutils.ResolveShowUntracked(command, configuration.Query.ShowUntracked)

	renderer, rendererError := builder.newRenderer(command, configuration)
	if rendererError != nil {
		return rendererError
	}

	service, serviceError := builder.newService(command, logger, configuration)
	if serviceError != nil {
		return serviceError
	}

	result, runError := service.Run(command.Context(), options)
	if runError != nil {
		return runError
	}
	return renderer.Render(result)
}

func (builder *CommandBuilder) newService(command *cobra.Command, logger *zap.Logger, configuration Configuration) (*Service, error) {
	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)

	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger)
	if executorError != nil {
		return nil, executorError
	}

	inspector, inspectorError := dependencies.ResolveRepositoryInspector(builder.Inspector, logger, gitExecutor, fileSystem)
	if inspectorError != nil {
		return nil, inspectorError
	}

	queryExecutor, queryExecutorError := query.NewExecutor(logger, inspector)
	if queryExecutorError != nil {
		return nil, queryExecutorError
	}

	scanner := dependencies.ResolveRepositoryScanner(builder.Scanner, logger, fileSystem)
	repositoryCache, cacheError := cache.NewRepoCache(logger, fileSystem, scanner, builder.Clock, configuration.Cache.File)
	if cacheError != nil {
		return nil, cacheError
	}

	executionMetadata, _ := utils.NewCommandContextAccessor().ExecutionMetadata(command.Context())
	version := executionMetadata.Version
	if len(version) == 0 {
		version = builder.resolveVersion()
	}

	return NewService(
		configuration,
		Dependencies{
			Logger:       logger,
			Cache:        repositoryCache,
			Runner:       queryExecutor,
			IgnoreEditor: NewIgnorePatternEditor(fileSystem),
			Clock:        builder.Clock,
		},
		Metadata{Version: version, ConfigurationFilePath: executionMetadata.ConfigurationFilePath},
	)
}

func (builder *CommandBuilder) newRenderer(command *cobra.Command, configuration Configuration) (*report.Renderer, error) {
	format, formatError := report.ParseFormat(configuration.Query.Output)
	if formatError != nil {
		return nil, formatError
	}
	if flagutils.ResolveJSONOutput(command) {
		format = report.FormatJSON
	}

	output := command.OutOrStdout()
	return report.NewRenderer(utils.NewFlushingWriter(output), format, terminalWidthOf(output))
}

func (builder *CommandBuilder) resolveConfiguration() (Configuration, error) {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	expander := builder.HomeExpander
	if expander == nil {
		expander = pathutils.NewHomeExpander()
	}
	return configuration.Sanitize(expander)
}

func (builder *CommandBuilder) resolveVersion() string {
	if builder.VersionProvider == nil {
		return ""
	}
	return builder.VersionProvider()
}

func terminalWidthOf(output io.Writer) int {
	file, isFile := output.(*os.File)
	if !isFile {
		return 0
	}
	width, known := report.TerminalWidth(file)
	if !known {
		return 0
	}
	return width
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
