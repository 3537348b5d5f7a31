package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/git-global/internal/execshell"
	"github.com/temirov/git-global/internal/gitrepo"
	"github.com/temirov/git-global/internal/query"
	"github.com/temirov/git-global/internal/repos/cache"
	"github.com/temirov/git-global/internal/repos/discovery"
	"github.com/temirov/git-global/internal/repos/filesystem"
	"github.com/temirov/git-global/internal/repos/shared"
)

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing shared.FileSystem) shared.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
func ResolveGitExecutor(existing shared.GitExecutor, logger *zap.Logger) (shared.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveRepositoryScanner returns the provided scanner or a filesystem-backed default.
func ResolveRepositoryScanner(existing cache.RepositoryScanner, logger *zap.Logger, fileSystem shared.FileSystem) cache.RepositoryScanner {
	if existing != nil {
		return existing
	}
	return discovery.NewScanner(logger, fileSystem, nil)
}

// ResolveRepositoryInspector returns the provided inspector or builds one on top of the git executor.
func ResolveRepositoryInspector(existing query.RepositoryInspector, logger *zap.Logger, executor shared.GitExecutor, fileSystem shared.FileSystem) (query.RepositoryInspector, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewInspector(logger, executor, fileSystem)
}
