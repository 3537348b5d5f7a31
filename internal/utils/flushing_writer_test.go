package utils_test

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/git-global/internal/utils"
)

var errDiskFull = errors.New("disk full")

type failingWriter struct {
	failure error
	writes  int
}

func (writer *failingWriter) Write(data []byte) (int, error) {
	writer.writes++
	return 0, writer.failure
}

func TestFlushingWriterFlushesBufferedOutput(testInstance *testing.T) {
	destination := &bytes.Buffer{}
	buffered := bufio.NewWriterSize(destination, 4096)

	writer := utils.NewFlushingWriter(buffered)
	_, writeError := writer.Write([]byte("/h/a\n"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, "/h/a\n", destination.String())

	require.Same(testInstance, writer, utils.NewFlushingWriter(writer))
	require.Nil(testInstance, utils.NewFlushingWriter(nil))
}

func TestFlushingWriterHandlesFailures(testInstance *testing.T) {
	testCases := []struct {
		name           string
		failure        error
		expectError    bool
		expectedWrites int
	}{
		{name: "closed_pipe_is_absorbed", failure: fmt.Errorf("write stdout: %w", syscall.EPIPE), expectError: false, expectedWrites: 1},
		{name: "other_errors_surface", failure: errDiskFull, expectError: true, expectedWrites: 2},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			destination := &failingWriter{failure: testCase.failure}
			writer := utils.NewFlushingWriter(destination)

			for attempt := 0; attempt < 2; attempt++ {
				bytesWritten, writeError := writer.Write([]byte("line\n"))
				if testCase.expectError {
					require.ErrorIs(subTest, writeError, errDiskFull)
					require.Zero(subTest, bytesWritten)
					continue
				}
				require.NoError(subTest, writeError)
				require.Equal(subTest, 5, bytesWritten)
			}
			require.Equal(subTest, testCase.expectedWrites, destination.writes)
		})
	}
}
