package pathutils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/atlas-audit/internal/utils/path"
)

const (
	testCaseAbsolutePathSuffixConstant       = "path-sanitizer"
	testCaseTildeRelativePathConstant        = "Projects/insight-atlas-ios"
	testCaseWhitespacePrefixConstant         = "  "
	testCaseWhitespaceSuffixConstant         = "\t"
	testCaseNestedDirectoryConstant          = "InsightAtlas"
	testCaseSiblingDirectoryConstant         = "InsightAtlasTests"
	testCaseSanitizerDefaultCaseNameConstant = "default_configuration"
	testCasePruneNestedCaseNameConstant      = "prune_nested_configuration"
)

func TestPathSanitizerNormalizesInputs(testInstance *testing.T) {
	homeDirectory, homeDirectoryError := os.UserHomeDir()
	require.NoError(testInstance, homeDirectoryError)

	temporaryDirectory := testInstance.TempDir()
	absolutePath := filepath.Join(temporaryDirectory, testCaseAbsolutePathSuffixConstant)
	nestedPath := filepath.Join(absolutePath, testCaseNestedDirectoryConstant)
	siblingPath := filepath.Join(temporaryDirectory, testCaseSiblingDirectoryConstant)
	tildeInput := filepath.Join("~", testCaseTildeRelativePathConstant)
	expandedTilde := filepath.Join(homeDirectory, testCaseTildeRelativePathConstant)

	testCases := []struct {
		name            string
		sanitizer       *pathutils.PathSanitizer
		inputs          []string
		expectedOutputs []string
	}{
		{
			name:      testCaseSanitizerDefaultCaseNameConstant,
			sanitizer: pathutils.NewPathSanitizer(),
			inputs: []string{
				"",
				testCaseWhitespacePrefixConstant + absolutePath + testCaseWhitespaceSuffixConstant,
				testCaseWhitespacePrefixConstant + tildeInput + testCaseWhitespaceSuffixConstant,
			},
			expectedOutputs: []string{absolutePath, expandedTilde},
		},
		{
			name:      testCasePruneNestedCaseNameConstant,
			sanitizer: pathutils.NewPathSanitizerWithConfiguration(nil, pathutils.PathSanitizerConfiguration{PruneNestedPaths: true}),
			inputs: []string{
				nestedPath,
				absolutePath,
				siblingPath,
				absolutePath,
			},
			expectedOutputs: []string{absolutePath, siblingPath},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			sanitized := testCase.sanitizer.Sanitize(testCase.inputs)
			require.Equal(subTest, testCase.expectedOutputs, sanitized)
		})
	}
}

func TestPathSanitizerReturnsNilForEmptyResults(testInstance *testing.T) {
	sanitizer := pathutils.NewPathSanitizer()

	sanitized := sanitizer.Sanitize([]string{"   ", "\n"})
	require.Nil(testInstance, sanitized)
}

func TestPathSanitizerResolveRoot(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	sanitizer := pathutils.NewPathSanitizer()

	require.Equal(testInstance, temporaryDirectory, sanitizer.ResolveRoot(testCaseWhitespacePrefixConstant+temporaryDirectory, "."))
	require.Equal(testInstance, workingDirectory, sanitizer.ResolveRoot("  ", "."))
	require.Empty(testInstance, sanitizer.ResolveRoot("", ""))
}
