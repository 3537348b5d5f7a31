package cli

import (
	"bytes"
	_ "embed"
)

//go:embed default_config.yaml
var embeddedDefaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns a copy of the built-in YAML configuration layered beneath user files.
func EmbeddedDefaultConfiguration() []byte {
	return bytes.Clone(embeddedDefaultConfigurationContent)
}
