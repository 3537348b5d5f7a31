package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/temirov/git-global/internal/execshell"
	"github.com/temirov/git-global/internal/repos/filesystem"
	"github.com/temirov/git-global/internal/repos/shared"
)

const (
	gitStatusSubcommandConstant         = "status"
	gitPorcelainFlagConstant            = "--porcelain"
	gitUntrackedAllFlagConstant         = "--untracked-files=all"
	gitUntrackedNoFlagConstant          = "--untracked-files=no"
	gitStashSubcommandConstant          = "stash"
	gitStashListSubcommandConstant      = "list"
	gitForEachRefSubcommandConstant     = "for-each-ref"
	gitUpstreamTrackFormatConstant      = "--format=%(upstream:track)"
	gitLocalBranchesPatternConstant     = "refs/heads"
	trackingOpenBracketConstant         = "["
	trackingCloseBracketConstant        = "]"
	trackingSeparatorConstant           = ","
	trackingAheadPrefixConstant         = "ahead "
	gitNotRepositoryMarkerConstant      = "not a git repository"
	gitOptionalLocksVariableConstant    = "GIT_OPTIONAL_LOCKS"
	gitTerminalPromptVariableConstant   = "GIT_TERMINAL_PROMPT"
	untrackedStatusCodeConstant         = "??"
	statusCodeLengthConstant            = 2
	unchangedStatusCodeConstant         = ' '
	logMessageInspectionFailedConstant  = "Repository inspection failed"
	logFieldRepositoryConstant          = "repository"
	logFieldKindConstant                = "kind"
	logFieldReasonConstant              = "reason"
	unsupportedKindMessageConstant      = "query kind is not answered per repository"
	unparsableAheadCountMessageConstant = "unexpected upstream tracking output"
)

var (
	errUnsupportedKind     = errors.New(unsupportedKindMessageConstant)
	errUnparsableAhead     = errors.New(unparsableAheadCountMessageConstant)
	gitEnvironmentDefaults = map[string]string{
		gitOptionalLocksVariableConstant:  "0",
		gitTerminalPromptVariableConstant: "0",
	}
)

// InspectOptions tunes how an inspection reports findings.
type InspectOptions struct {
	ShowUntracked bool
}

type repositoryOpener func(path string) (*git.Repository, error)

// Inspector answers a single query kind for a single repository.
type Inspector struct {
	logger     *zap.Logger
	executor   shared.GitExecutor
	fileSystem shared.FileSystem
	opener     repositoryOpener
}

// NewInspector constructs an Inspector backed by the supplied git executor.
func NewInspector(logger *zap.Logger, executor shared.GitExecutor, fileSystem shared.FileSystem) (*Inspector, error) {
	if executor == nil {
		return nil, execshell.ErrCommandRunnerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	return &Inspector{logger: logger, executor: executor, fileSystem: fileSystem, opener: openRepository}, nil
}

func openRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
}

// Inspect answers the query kind for one repository. Failures are returned as InspectionError values.
func (inspector *Inspector) Inspect(executionContext context.Context, repository shared.RepositoryIdentity, kind shared.QueryKind, options InspectOptions) (shared.Findings, error) {
	findings, inspectionError := inspector.inspect(executionContext, repository, kind, options)
	if inspectionError != nil {
		inspector.logger.Debug(
			logMessageInspectionFailedConstant,
			zap.String(logFieldRepositoryConstant, repository.Path),
			zap.String(logFieldKindConstant, string(kind)),
			zap.String(logFieldReasonConstant, string(FailureReasonOf(inspectionError))),
			zap.Error(inspectionError),
		)
	}
	return findings, inspectionError
}

func (inspector *Inspector) inspect(executionContext context.Context, repository shared.RepositoryIdentity, kind shared.QueryKind, options InspectOptions) (shared.Findings, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return shared.Findings{}, contextError
	}
	if !kind.RunsPerRepository() {
		return shared.Findings{}, InspectionError{Reason: shared.FailureReasonInspectorError, Path: repository.Path, Err: errUnsupportedKind}
	}

	headAvailable, validationError := inspector.validate(repository)
	if validationError != nil {
		return shared.Findings{}, validationError
	}

	switch kind {
	case shared.QueryKindList:
		return shared.Findings{}, nil
	case shared.QueryKindAhead:
		if !headAvailable {
			return shared.Findings{}, nil
		}
		return inspector.aheadFindings(executionContext, repository)
	case shared.QueryKindStashed:
		return inspector.stashFindings(executionContext, repository)
	default:
		return inspector.statusFindings(executionContext, repository, kind, options)
	}
}

// validate confirms the path exists and holds a readable repository.
// It reports whether HEAD resolves to a commit.
func (inspector *Inspector) validate(repository shared.RepositoryIdentity) (bool, error) {
	if _, statError := inspector.fileSystem.Stat(repository.Path); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return false, InspectionError{Reason: shared.FailureReasonMissing, Path: repository.Path, Err: statError}
		}
		return false, InspectionError{Reason: shared.FailureReasonInspectorError, Path: repository.Path, Err: statError}
	}
	if _, gitEntryError := inspector.fileSystem.Lstat(filepath.Join(repository.Path, git.GitDirName)); gitEntryError != nil {
		return false, InspectionError{Reason: shared.FailureReasonNotARepository, Path: repository.Path, Err: git.ErrRepositoryNotExists}
	}

	openedRepository, openError := inspector.opener(repository.Path)
	if openError != nil {
		if errors.Is(openError, git.ErrRepositoryNotExists) {
			return false, InspectionError{Reason: shared.FailureReasonNotARepository, Path: repository.Path, Err: openError}
		}
		return false, InspectionError{Reason: shared.FailureReasonInspectorError, Path: repository.Path, Err: openError}
	}

	if _, headError := openedRepository.Head(); headError != nil {
		if errors.Is(headError, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, InspectionError{Reason: shared.FailureReasonCorruptedReferences, Path: repository.Path, Err: headError}
	}
	return true, nil
}

func (inspector *Inspector) statusFindings(executionContext context.Context, repository shared.RepositoryIdentity, kind shared.QueryKind, options InspectOptions) (shared.Findings, error) {
	untrackedFlag := gitUntrackedNoFlagConstant
	if options.ShowUntracked {
		untrackedFlag = gitUntrackedAllFlagConstant
	}

	output, gitError := inspector.runGit(executionContext, repository, gitStatusSubcommandConstant, gitPorcelainFlagConstant, untrackedFlag)
	if gitError != nil {
		return shared.Findings{}, gitError
	}

	return shared.Findings{Lines: FilterStatusLines(kind, splitOutputLines(output))}, nil
}

func (inspector *Inspector) stashFindings(executionContext context.Context, repository shared.RepositoryIdentity) (shared.Findings, error) {
	output, gitError := inspector.runGit(executionContext, repository, gitStashSubcommandConstant, gitStashListSubcommandConstant)
	if gitError != nil {
		return shared.Findings{}, gitError
	}
	return shared.Findings{Lines: splitOutputLines(output)}, nil
}

// aheadFindings sums the commits each local branch has over its upstream branch.
// Branches without an upstream are not counted.
func (inspector *Inspector) aheadFindings(executionContext context.Context, repository shared.RepositoryIdentity) (shared.Findings, error) {
	output, gitError := inspector.runGit(executionContext, repository, gitForEachRefSubcommandConstant, gitUpstreamTrackFormatConstant, gitLocalBranchesPatternConstant)
	if gitError != nil {
		return shared.Findings{}, gitError
	}

	aheadCount := 0
	for _, trackingLine := range splitOutputLines(output) {
		branchAhead, parseError := parseAheadCount(trackingLine)
		if parseError != nil {
			return shared.Findings{}, InspectionError{Reason: shared.FailureReasonInspectorError, Path: repository.Path, Err: errors.Join(errUnparsableAhead, parseError)}
		}
		aheadCount += branchAhead
	}
	return shared.Findings{AheadCount: aheadCount}, nil
}

// parseAheadCount reads one %(upstream:track) value such as "[ahead 2, behind 1]" or "[gone]".
func parseAheadCount(trackingLine string) (int, error) {
	trimmedLine := strings.TrimSpace(trackingLine)
	if !strings.HasPrefix(trimmedLine, trackingOpenBracketConstant) || !strings.HasSuffix(trimmedLine, trackingCloseBracketConstant) {
		return 0, fmt.Errorf("%q", trackingLine)
	}
	trimmedLine = strings.TrimSuffix(strings.TrimPrefix(trimmedLine, trackingOpenBracketConstant), trackingCloseBracketConstant)

	for _, part := range strings.Split(trimmedLine, trackingSeparatorConstant) {
		countText, isAhead := strings.CutPrefix(strings.TrimSpace(part), trackingAheadPrefixConstant)
		if !isAhead {
			continue
		}
		return strconv.Atoi(countText)
	}
	return 0, nil
}

func (inspector *Inspector) runGit(executionContext context.Context, repository shared.RepositoryIdentity, arguments ...string) (string, error) {
	result, executionError := inspector.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     repository.Path,
		EnvironmentVariables: gitEnvironmentDefaults,
	})
	if executionError == nil {
		return result.StandardOutput, nil
	}

	if contextError := executionContext.Err(); contextError != nil {
		return "", contextError
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) && strings.Contains(failedError.Result.StandardError, gitNotRepositoryMarkerConstant) {
		return "", InspectionError{Reason: shared.FailureReasonNotARepository, Path: repository.Path, Err: executionError}
	}
	return "", InspectionError{Reason: shared.FailureReasonInspectorError, Path: repository.Path, Err: executionError}
}

// FilterStatusLines keeps the porcelain status lines relevant to the kind.
// Staged keeps entries with an index change, unstaged keeps entries with a worktree change.
func FilterStatusLines(kind shared.QueryKind, lines []string) []string {
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(line) < statusCodeLengthConstant {
			continue
		}
		indexCode := line[0]
		worktreeCode := line[1]
		untracked := line[:statusCodeLengthConstant] == untrackedStatusCodeConstant

		switch kind {
		case shared.QueryKindStaged:
			if untracked || indexCode == unchangedStatusCodeConstant {
				continue
			}
		case shared.QueryKindUnstaged:
			if worktreeCode == unchangedStatusCodeConstant {
				continue
			}
		}
		filtered = append(filtered, line)
	}
	return filtered
}

func splitOutputLines(output string) []string {
	rawLines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	lines := make([]string, 0, len(rawLines))
	for _, rawLine := range rawLines {
		line := strings.TrimRight(rawLine, "\r")
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
