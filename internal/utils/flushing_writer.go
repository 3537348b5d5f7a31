package utils

import (
	"errors"
	"io"
	"sync"
	"syscall"
)

// FlushingWriter forwards report output, flushing buffered writers after each write.
// A closed downstream pipe (git global list | head) ends output quietly instead of failing the command.
type FlushingWriter struct {
	writer     io.Writer
	mutex      sync.Mutex
	pipeClosed bool
}

// NewFlushingWriter wraps the provided writer.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if _, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return writer
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the underlying writer and flushes it when possible.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return 0, nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	if flushingWriter.pipeClosed {
		return len(data), nil
	}

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return flushingWriter.absorbClosedPipe(len(data), bytesWritten, writeError)
	}

	if flushableWriter, implementsFlush := flushingWriter.writer.(interface{ Flush() error }); implementsFlush {
		if flushError := flushableWriter.Flush(); flushError != nil {
			return flushingWriter.absorbClosedPipe(len(data), bytesWritten, flushError)
		}
	}

	return bytesWritten, nil
}

func (flushingWriter *FlushingWriter) absorbClosedPipe(requested int, bytesWritten int, writeError error) (int, error) {
	if errors.Is(writeError, syscall.EPIPE) {
		flushingWriter.pipeClosed = true
		return requested, nil
	}
	return bytesWritten, writeError
}
