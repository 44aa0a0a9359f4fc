package container

import (
	"fmt"

	"github.com/arloliu/genostore/endian"
	"github.com/arloliu/genostore/internal/options"
)

// DefaultBufferSize is the write buffer size of a Writer.
const DefaultBufferSize = 256 * 1024

type settings struct {
	engine     endian.Engine
	bufferSize int
}

func defaultSettings() *settings {
	return &settings{
		engine:     endian.Little(),
		bufferSize: DefaultBufferSize,
	}
}

// Option configures a Writer or a Reader.
type Option = options.Option[*settings]

// WithByteOrder sets the byte order of the record length fields. Writer and reader must
// agree; the container records no byte order of its own.
func WithByteOrder(engine endian.Engine) Option {
	return options.New(func(s *settings) error {
		if engine == nil {
			return fmt.Errorf("byte order engine must not be nil")
		}
		s.engine = engine

		return nil
	})
}

// WithBufferSize sets the Writer buffer size. Readers ignore it.
func WithBufferSize(size int) Option {
	return options.New(func(s *settings) error {
		if size <= 0 {
			return fmt.Errorf("buffer size must be positive, got %d", size)
		}
		s.bufferSize = size

		return nil
	})
}
