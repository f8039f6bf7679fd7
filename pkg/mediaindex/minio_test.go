package mediaindex

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeUpload stands in for PutObject: it consumes the pipe and reports what
// the upload saw.
func pipeUpload() (*minioWriter, <-chan []byte, <-chan error) {
	pr, pw := io.Pipe()
	w := &minioWriter{
		pw:   pw,
		done: make(chan error, 1),
	}

	data := make(chan []byte, 1)
	seen := make(chan error, 1)
	go func() {
		b, err := io.ReadAll(pr)
		data <- b
		seen <- err
		w.done <- err
	}()

	return w, data, seen
}

func TestMinioWriter_CloseCommits(t *testing.T) {
	w, data, seen := pipeUpload()

	_, err := w.Write([]byte("complete"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "complete", string(<-data))
	assert.NoError(t, <-seen)
}

func TestMinioWriter_CloseWithErrorFailsUpload(t *testing.T) {
	w, data, seen := pipeUpload()
	cause := errors.New("stream interrupted")

	_, err := w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, w.CloseWithError(cause))

	assert.Equal(t, "partial", string(<-data))
	assert.ErrorIs(t, <-seen, cause)
}
