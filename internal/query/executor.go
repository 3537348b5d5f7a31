package query

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/git-global/internal/gitrepo"
	"github.com/temirov/git-global/internal/repos/shared"
)

const (
	inspectorMissingMessageConstant  = "repository inspector not configured"
	recoveredPanicTemplateConstant   = "inspector panicked: %v"
	logMessageQueryStartedConstant   = "Running query"
	logMessageQueryCompletedConstant = "Query completed"
	logMessageQueryCancelledConstant = "Query cancelled"
	logMessageInspectorPanicConstant = "Recovered inspector panic"
	logFieldKindConstant             = "kind"
	logFieldRepositoryCountConstant  = "repositories"
	logFieldParallelismConstant      = "parallelism"
	logFieldFailureCountConstant     = "failures"
	logFieldRepositoryConstant       = "repository"
	logFieldPanicConstant            = "panic"
)

// ErrInspectorNotConfigured indicates the executor was constructed without an inspector.
var ErrInspectorNotConfigured = errors.New(inspectorMissingMessageConstant)

// RepositoryInspector answers a query kind for one repository.
type RepositoryInspector interface {
	Inspect(executionContext context.Context, repository shared.RepositoryIdentity, kind shared.QueryKind, options gitrepo.InspectOptions) (shared.Findings, error)
}

// Options tunes a single executor run.
type Options struct {
	Parallelism   int
	Timeout       time.Duration
	ShowUntracked bool
}

// Executor fans a query out over repositories and collects one outcome per repository.
type Executor struct {
	logger    *zap.Logger
	inspector RepositoryInspector
}

// NewExecutor validates dependencies and constructs an Executor.
func NewExecutor(logger *zap.Logger, inspector RepositoryInspector) (*Executor, error) {
	if inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{logger: logger, inspector: inspector}, nil
}

// EffectiveParallelism returns the pool size used for the configured parallelism.
func EffectiveParallelism(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.NumCPU()
}

// Run inspects every repository and returns an outcome for each one.
// A cancelled context yields the context error and no outcomes.
func (executor *Executor) Run(executionContext context.Context, repositories []shared.RepositoryIdentity, kind shared.QueryKind, options Options) (map[shared.RepositoryIdentity]shared.Outcome, error) {
	parallelism := EffectiveParallelism(options.Parallelism)
	executor.logger.Debug(
		logMessageQueryStartedConstant,
		zap.String(logFieldKindConstant, string(kind)),
		zap.Int(logFieldRepositoryCountConstant, len(repositories)),
		zap.Int(logFieldParallelismConstant, parallelism),
	)

	outcomes := make(map[shared.RepositoryIdentity]shared.Outcome, len(repositories))
	var outcomesMutex sync.Mutex

	var workerGroup errgroup.Group
	workerGroup.SetLimit(parallelism)

	for _, repository := range repositories {
		if executionContext.Err() != nil {
			break
		}
		repository := repository
		workerGroup.Go(func() error {
			outcome := executor.inspectRepository(executionContext, repository, kind, options)
			outcomesMutex.Lock()
			outcomes[repository] = outcome
			outcomesMutex.Unlock()
			return nil
		})
	}
	_ = workerGroup.Wait()

	if contextError := executionContext.Err(); contextError != nil {
		executor.logger.Debug(logMessageQueryCancelledConstant, zap.String(logFieldKindConstant, string(kind)), zap.Error(contextError))
		return nil, contextError
	}

	failureCount := 0
	for _, outcome := range outcomes {
		if outcome.Failed() {
			failureCount++
		}
	}
	executor.logger.Debug(
		logMessageQueryCompletedConstant,
		zap.String(logFieldKindConstant, string(kind)),
		zap.Int(logFieldRepositoryCountConstant, len(outcomes)),
		zap.Int(logFieldFailureCountConstant, failureCount),
	)
	return outcomes, nil
}

func (executor *Executor) inspectRepository(executionContext context.Context, repository shared.RepositoryIdentity, kind shared.QueryKind, options Options) (outcome shared.Outcome) {
	if contextError := executionContext.Err(); contextError != nil {
		return shared.FailedWith(shared.FailureReasonCancelled, contextError.Error())
	}

	unitContext := executionContext
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		unitContext, cancel = context.WithTimeout(executionContext, options.Timeout)
		defer cancel()
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			executor.logger.Warn(logMessageInspectorPanicConstant, zap.String(logFieldRepositoryConstant, repository.Path), zap.Any(logFieldPanicConstant, recovered))
			outcome = shared.FailedWith(shared.FailureReasonInspectorError, fmt.Sprintf(recoveredPanicTemplateConstant, recovered))
		}
	}()

	findings, inspectError := executor.inspector.Inspect(unitContext, repository, kind, gitrepo.InspectOptions{ShowUntracked: options.ShowUntracked})
	if inspectError != nil {
		return shared.FailedWith(gitrepo.FailureReasonOf(inspectError), inspectError.Error())
	}
	return shared.SucceededWith(findings)
}
