package report

import (
	"github.com/temirov/git-global/internal/repos/shared"
)

// Entry pairs a repository with its query outcome.
type Entry struct {
	Repository shared.RepositoryIdentity
	Outcome    shared.Outcome
}

// Report is the merged result of one query, ordered by canonical repository path.
type Report struct {
	Kind     shared.QueryKind
	Messages []string
	Entries  []Entry
}

// Aggregate orders the outcomes by canonical path. Arrival order never influences the result.
func Aggregate(kind shared.QueryKind, outcomes map[shared.RepositoryIdentity]shared.Outcome) Report {
	repositories := make([]shared.RepositoryIdentity, 0, len(outcomes))
	for repository := range outcomes {
		repositories = append(repositories, repository)
	}
	shared.SortRepositoryIdentities(repositories)

	entries := make([]Entry, 0, len(repositories))
	for _, repository := range repositories {
		entries = append(entries, Entry{Repository: repository, Outcome: outcomes[repository]})
	}
	return Report{Kind: kind, Messages: []string{}, Entries: entries}
}

// NewMessageReport builds a report that only carries global messages.
func NewMessageReport(kind shared.QueryKind, messages ...string) Report {
	return Report{Kind: kind, Messages: append([]string{}, messages...), Entries: []Entry{}}
}

// AddMessage appends a global message.
func (report *Report) AddMessage(message string) {
	report.Messages = append(report.Messages, message)
}

// RelevantEntries returns the entries that have something to show for the report kind.
func (report Report) RelevantEntries() []Entry {
	relevant := make([]Entry, 0, len(report.Entries))
	for _, entry := range report.Entries {
		if entry.Outcome.Relevant(report.Kind) {
			relevant = append(relevant, entry)
		}
	}
	return relevant
}

// MissingRepositories lists entries confirmed absent from disk.
func (report Report) MissingRepositories() []shared.RepositoryIdentity {
	var missing []shared.RepositoryIdentity
	for _, entry := range report.Entries {
		if entry.Outcome.Missing() {
			missing = append(missing, entry.Repository)
		}
	}
	return missing
}
