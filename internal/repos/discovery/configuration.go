package discovery

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	fingerprintFormatVersionConstant = "git-global/discovery/v1"
	fingerprintFieldTemplateConstant = "%s=%d:%s\n"
)

// DiscoveryConfig controls which directories the Scanner visits.
type DiscoveryConfig struct {
	Root           string
	FollowSymlinks bool
	SameFilesystem bool
	IgnorePatterns []string
}

// Fingerprint returns a stable digest of every field. Pattern order is significant.
func (configuration DiscoveryConfig) Fingerprint() string {
	var encoded strings.Builder
	encoded.WriteString(fingerprintFormatVersionConstant)
	encoded.WriteString("\n")
	writeFingerprintField(&encoded, "root", configuration.Root)
	writeFingerprintField(&encoded, "follow_symlinks", strconv.FormatBool(configuration.FollowSymlinks))
	writeFingerprintField(&encoded, "same_filesystem", strconv.FormatBool(configuration.SameFilesystem))
	writeFingerprintField(&encoded, "ignore_count", strconv.Itoa(len(configuration.IgnorePatterns)))
	for _, pattern := range configuration.IgnorePatterns {
		writeFingerprintField(&encoded, "ignore", pattern)
	}

	digest := sha256.Sum256([]byte(encoded.String()))
	return hex.EncodeToString(digest[:])
}

func writeFingerprintField(builder *strings.Builder, name string, value string) {
	fmt.Fprintf(builder, fingerprintFieldTemplateConstant, name, len(value), value)
}
