package pathutils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/git-global/internal/utils/path"
)

const (
	testCaseHomeDirectoryConstant     = "/home/tester"
	testCaseProjectsRelativeConstant  = "Projects/example"
	testCaseLinkNameConstant          = "linked"
	testCaseTargetNameConstant        = "target"
	testCaseWhitespacePaddingConstant = "  "
)

func TestHomeExpanderExpandsTildePrefixes(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testCaseHomeDirectoryConstant, nil
	})

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare_tilde", input: "~", expected: testCaseHomeDirectoryConstant},
		{name: "tilde_slash", input: "~/" + testCaseProjectsRelativeConstant, expected: filepath.Join(testCaseHomeDirectoryConstant, testCaseProjectsRelativeConstant)},
		{name: "absolute_untouched", input: "/var/tmp", expected: "/var/tmp"},
		{name: "other_user_untouched", input: "~other/x", expected: "~other/x"},
		{name: "empty_untouched", input: "", expected: ""},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, expander.Expand(testCase.input))
		})
	}
}

func TestPathCanonicalizerResolvesSymbolicLinks(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	resolvedTemporaryDirectory, resolveError := filepath.EvalSymlinks(temporaryDirectory)
	require.NoError(testInstance, resolveError)

	targetPath := filepath.Join(resolvedTemporaryDirectory, testCaseTargetNameConstant)
	require.NoError(testInstance, os.Mkdir(targetPath, 0o755))
	linkPath := filepath.Join(resolvedTemporaryDirectory, testCaseLinkNameConstant)
	require.NoError(testInstance, os.Symlink(targetPath, linkPath))

	canonicalizer := pathutils.NewPathCanonicalizer()

	canonicalPath, canonicalError := canonicalizer.Canonicalize(testCaseWhitespacePaddingConstant + linkPath + "/")
	require.NoError(testInstance, canonicalError)
	require.Equal(testInstance, targetPath, canonicalPath)
}

func TestPathCanonicalizerRejectsEmptyAndMissingPaths(testInstance *testing.T) {
	canonicalizer := pathutils.NewPathCanonicalizer()

	_, emptyError := canonicalizer.Canonicalize(testCaseWhitespacePaddingConstant)
	require.ErrorIs(testInstance, emptyError, pathutils.ErrEmptyPath)

	_, missingError := canonicalizer.Canonicalize(filepath.Join(testInstance.TempDir(), "missing"))
	require.Error(testInstance, missingError)
	require.ErrorIs(testInstance, missingError, os.ErrNotExist)
}
