package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/facedecode/internal/detector"
)

// FileSource reads concatenated or newline-delimited JSON frames.
type FileSource struct {
	name       string
	closer     io.Closer
	dec        *jsoniter.Decoder
	numStrides int
	index      int
	err        error
}

// Open opens a frame file. The path "-" reads standard input.
func Open(path string, numStrides int) (*FileSource, error) {
	if path == "-" {
		s := NewReader(os.Stdin, numStrides)
		s.name = "stdin"
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frames: %w", err)
	}

	s := NewReader(f, numStrides)
	s.name = path
	s.closer = f
	return s, nil
}

// NewReader returns a FileSource reading from r. The caller owns r.
func NewReader(r io.Reader, numStrides int) *FileSource {
	return &FileSource{
		name:       "reader",
		dec:        json.NewDecoder(bufio.NewReader(r)),
		numStrides: numStrides,
	}
}

// Name describes where the frames come from.
func (s *FileSource) Name() string {
	return s.name
}

// Next decodes the next frame. A malformed document ends the stream with an
// error; a well-formed frame with inconsistent tensors returns an error
// wrapping detector.ErrShapeMismatch and the stream continues.
func (s *FileSource) Next(ctx context.Context) (*detector.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.err != nil {
		return nil, s.err
	}
	if !s.dec.More() {
		return nil, io.EOF
	}

	var w wireFrame
	if err := s.dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		s.err = fmt.Errorf("decode frame %d: %w", s.index, err)
		return nil, s.err
	}

	idx := s.index
	s.index++

	f, err := w.frame(s.numStrides)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", idx, err)
	}
	return f, nil
}

// Close closes the underlying file if Open created it.
func (s *FileSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
