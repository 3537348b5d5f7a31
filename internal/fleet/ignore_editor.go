package fleet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/git-global/internal/repos/shared"
)

const (
	applicationDirectoryNameConstant       = "git-global"
	userConfigurationFileNameConstant      = "config.yaml"
	discoverySectionKeyConstant            = "discovery"
	ignoreKeyConstant                      = "ignore"
	yamlStringTagConstant                  = "!!str"
	yamlMapTagConstant                     = "!!map"
	yamlSequenceTagConstant                = "!!seq"
	yamlIndentConstant                     = 2
	ignoreListSeparatorConstant            = ","
	configurationDirectoryPermissions      = fs.FileMode(0o755)
	configurationFilePermissions           = fs.FileMode(0o644)
	configurationRootNotMappingTemplate    = "%s: top level is not a mapping"
	configurationSectionNotMappingTemplate = "%s: %s is not a mapping"
	configurationSettingNotListTemplate    = "%s: %s.%s is not a list"
	configurationDecodeTemplate            = "%s: %w"
	jsonFileExtensionConstant              = ".json"
	jsonIndentConstant                     = "  "
)

var errUserConfigurationDirectoryUnavailable = errors.New("user configuration directory unavailable")

// IgnorePatternEditor appends ignore patterns to a YAML or JSON configuration file.
type IgnorePatternEditor struct {
	fileSystem shared.FileSystem
}

// NewIgnorePatternEditor constructs an editor backed by the provided filesystem.
func NewIgnorePatternEditor(fileSystem shared.FileSystem) *IgnorePatternEditor {
	return &IgnorePatternEditor{fileSystem: fileSystem}
}

// Append adds the pattern to discovery.ignore, seeding a new list with the effective patterns.
// It reports whether the file changed.
func (editor *IgnorePatternEditor) Append(filePath string, effectivePatterns []string, pattern string) (bool, error) {
	document, loadError := editor.load(filePath)
	if loadError != nil {
		return false, loadError
	}

	rootNode := document.Content[0]
	if rootNode.Kind != yaml.MappingNode {
		return false, fmt.Errorf(configurationRootNotMappingTemplate, filePath)
	}

	discoveryNode := mappingValue(rootNode, discoverySectionKeyConstant)
	if discoveryNode == nil {
		discoveryNode = &yaml.Node{Kind: yaml.MappingNode, Tag: yamlMapTagConstant}
		appendMappingEntry(rootNode, discoverySectionKeyConstant, discoveryNode)
	}
	if discoveryNode.Kind != yaml.MappingNode {
		return false, fmt.Errorf(configurationSectionNotMappingTemplate, filePath, discoverySectionKeyConstant)
	}

	ignoreNode := mappingValue(discoveryNode, ignoreKeyConstant)
	switch {
	case ignoreNode == nil:
		ignoreNode = sequenceNode(effectivePatterns)
		appendMappingEntry(discoveryNode, ignoreKeyConstant, ignoreNode)
	case ignoreNode.Kind == yaml.ScalarNode:
		*ignoreNode = *sequenceNode(strings.Split(ignoreNode.Value, ignoreListSeparatorConstant))
	case ignoreNode.Kind != yaml.SequenceNode:
		return false, fmt.Errorf(configurationSettingNotListTemplate, filePath, discoverySectionKeyConstant, ignoreKeyConstant)
	}

	for _, existing := range ignoreNode.Content {
		if strings.TrimSpace(existing.Value) == pattern {
			return false, nil
		}
	}
	ignoreNode.Content = append(ignoreNode.Content, scalarNode(pattern))

	return true, editor.save(filePath, document)
}

func (editor *IgnorePatternEditor) load(filePath string) (*yaml.Node, error) {
	document := &yaml.Node{}
	contents, readError := editor.fileSystem.ReadFile(filePath)
	if readError != nil && !errors.Is(readError, fs.ErrNotExist) {
		return nil, readError
	}
	if len(bytes.TrimSpace(contents)) > 0 {
		if decodeError := yaml.Unmarshal(contents, document); decodeError != nil {
			return nil, fmt.Errorf(configurationDecodeTemplate, filePath, decodeError)
		}
	}
	if document.Kind != yaml.DocumentNode || len(document.Content) == 0 {
		document = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: yamlMapTagConstant}}}
	}
	return document, nil
}

func (editor *IgnorePatternEditor) save(filePath string, document *yaml.Node) error {
	encoded, encodeError := encodeDocument(filePath, document)
	if encodeError != nil {
		return encodeError
	}

	if mkdirError := editor.fileSystem.MkdirAll(filepath.Dir(filePath), configurationDirectoryPermissions); mkdirError != nil {
		return mkdirError
	}
	return editor.fileSystem.WriteFile(filePath, encoded, configurationFilePermissions)
}

// encodeDocument writes JSON for .json files and YAML otherwise.
func encodeDocument(filePath string, document *yaml.Node) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(filePath), jsonFileExtensionConstant) {
		var values map[string]any
		if decodeError := document.Decode(&values); decodeError != nil {
			return nil, fmt.Errorf(configurationDecodeTemplate, filePath, decodeError)
		}
		encoded, marshalError := json.MarshalIndent(values, "", jsonIndentConstant)
		if marshalError != nil {
			return nil, marshalError
		}
		return append(encoded, '\n'), nil
	}

	var encoded bytes.Buffer
	encoder := yaml.NewEncoder(&encoded)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(document); encodeError != nil {
		return nil, encodeError
	}
	if closeError := encoder.Close(); closeError != nil {
		return nil, closeError
	}
	return encoded.Bytes(), nil
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for index := 0; index+1 < len(mapping.Content); index += 2 {
		if mapping.Content[index].Value == key {
			return mapping.Content[index+1]
		}
	}
	return nil
}

func appendMappingEntry(mapping *yaml.Node, key string, value *yaml.Node) {
	mapping.Content = append(mapping.Content, scalarNode(key), value)
}

func sequenceNode(values []string) *yaml.Node {
	sequence := &yaml.Node{Kind: yaml.SequenceNode, Tag: yamlSequenceTagConstant}
	for _, value := range sanitizePatterns(values) {
		sequence.Content = append(sequence.Content, scalarNode(value))
	}
	return sequence
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: yamlStringTagConstant, Value: value}
}
