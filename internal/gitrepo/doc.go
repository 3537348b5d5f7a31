// Package gitrepo inspects individual git repositories on behalf of fleet queries.
//
// Inspector validates a repository with go-git and answers status, stash and
// ahead questions through the git CLI, classifying every failure with a
// shared.FailureReason so that one broken repository never aborts a query.
package gitrepo
