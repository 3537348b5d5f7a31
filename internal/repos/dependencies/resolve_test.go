package dependencies_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/git-global/internal/execshell"
	"github.com/temirov/git-global/internal/gitrepo"
	"github.com/temirov/git-global/internal/repos/dependencies"
	"github.com/temirov/git-global/internal/repos/discovery"
	"github.com/temirov/git-global/internal/repos/filesystem"
	"github.com/temirov/git-global/internal/repos/shared"
)

type stubGitExecutor struct{}

func (stubGitExecutor) ExecuteGit(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

type stubScanner struct{}

func (stubScanner) Scan(context.Context, discovery.DiscoveryConfig) (discovery.Result, error) {
	return discovery.Result{}, nil
}

type stubInspector struct{}

func (stubInspector) Inspect(context.Context, shared.RepositoryIdentity, shared.QueryKind, gitrepo.InspectOptions) (shared.Findings, error) {
	return shared.Findings{}, nil
}

func TestResolversPreferExistingCollaborators(testInstance *testing.T) {
	require.Equal(testInstance, filesystem.OSFileSystem{}, dependencies.ResolveFileSystem(nil))

	existingExecutor := stubGitExecutor{}
	resolvedExecutor, executorError := dependencies.ResolveGitExecutor(existingExecutor, zap.NewNop())
	require.NoError(testInstance, executorError)
	require.Equal(testInstance, existingExecutor, resolvedExecutor)

	require.Equal(testInstance, stubScanner{}, dependencies.ResolveRepositoryScanner(stubScanner{}, zap.NewNop(), nil))

	resolvedInspector, inspectorError := dependencies.ResolveRepositoryInspector(stubInspector{}, zap.NewNop(), existingExecutor, nil)
	require.NoError(testInstance, inspectorError)
	require.Equal(testInstance, stubInspector{}, resolvedInspector)
}

func TestResolversBuildDefaults(testInstance *testing.T) {
	defaultExecutor, executorError := dependencies.ResolveGitExecutor(nil, zap.NewNop())
	require.NoError(testInstance, executorError)
	require.IsType(testInstance, &execshell.ShellExecutor{}, defaultExecutor)

	_, missingLoggerError := dependencies.ResolveGitExecutor(nil, nil)
	require.ErrorIs(testInstance, missingLoggerError, execshell.ErrLoggerNotConfigured)

	require.IsType(testInstance, &discovery.Scanner{}, dependencies.ResolveRepositoryScanner(nil, zap.NewNop(), nil))

	defaultInspector, inspectorError := dependencies.ResolveRepositoryInspector(nil, zap.NewNop(), defaultExecutor, nil)
	require.NoError(testInstance, inspectorError)
	require.IsType(testInstance, &gitrepo.Inspector{}, defaultInspector)
}
