package cache

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/temirov/git-global/internal/repos/shared"
)

const (
	// CacheFormatVersion identifies the layout of the persisted cache record.
	CacheFormatVersion = 1

	recordVersionMismatchTemplateConstant    = "cache format version %d does not match %d"
	recordFingerprintMismatchMessageConstant = "cache fingerprint does not match the discovery configuration"
	recordRepositoryInvalidTemplateConstant  = "cache entry %q: %w"
	recordDecodeTemplateConstant             = "decode cache record: %w"
	recordEncodeTemplateConstant             = "encode cache record: %w"
)

var (
	errRecordVersionMismatch     = errors.New("cache format version mismatch")
	errRecordFingerprintMismatch = errors.New(recordFingerprintMismatchMessageConstant)
)

// CacheRecord is the persisted form of a discovered repository set.
type CacheRecord struct {
	Version      int       `yaml:"version"`
	Fingerprint  string    `yaml:"fingerprint"`
	GeneratedAt  time.Time `yaml:"generated_at"`
	Root         string    `yaml:"root"`
	Repositories []string  `yaml:"repositories"`
}

func newCacheRecord(fingerprint string, root string, generatedAt time.Time, repositories []shared.RepositoryIdentity) CacheRecord {
	paths := make([]string, 0, len(repositories))
	for _, repository := range repositories {
		paths = append(paths, repository.Path)
	}
	return CacheRecord{
		Version:      CacheFormatVersion,
		Fingerprint:  fingerprint,
		GeneratedAt:  generatedAt.UTC(),
		Root:         root,
		Repositories: paths,
	}
}

func decodeCacheRecord(contents []byte) (CacheRecord, error) {
	var record CacheRecord
	if decodeError := yaml.Unmarshal(contents, &record); decodeError != nil {
		return CacheRecord{}, fmt.Errorf(recordDecodeTemplateConstant, decodeError)
	}
	return record, nil
}

func encodeCacheRecord(record CacheRecord) ([]byte, error) {
	contents, encodeError := yaml.Marshal(record)
	if encodeError != nil {
		return nil, fmt.Errorf(recordEncodeTemplateConstant, encodeError)
	}
	return contents, nil
}

// trustedRepositories returns the record's repositories when the record matches the fingerprint.
func (record CacheRecord) trustedRepositories(fingerprint string) ([]shared.RepositoryIdentity, error) {
	if record.Version != CacheFormatVersion {
		return nil, fmt.Errorf("%w: "+recordVersionMismatchTemplateConstant, errRecordVersionMismatch, record.Version, CacheFormatVersion)
	}
	if record.Fingerprint != fingerprint {
		return nil, errRecordFingerprintMismatch
	}

	repositories := make([]shared.RepositoryIdentity, 0, len(record.Repositories))
	seen := make(map[string]struct{}, len(record.Repositories))
	for _, repositoryPath := range record.Repositories {
		identity, identityError := shared.NewRepositoryIdentity(repositoryPath)
		if identityError != nil {
			return nil, fmt.Errorf(recordRepositoryInvalidTemplateConstant, repositoryPath, identityError)
		}
		if _, duplicate := seen[identity.Path]; duplicate {
			continue
		}
		seen[identity.Path] = struct{}{}
		repositories = append(repositories, identity)
	}
	shared.SortRepositoryIdentities(repositories)
	return repositories, nil
}
