package log

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/natefinch/lumberjack.v2"
)

type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		if _, e := w.Write(p); e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(w io.Writer) *MultiWriter {
	m.writers = append(m.writers, w)
	return m
}

// buildWriters assembles the output writer from the appender list. With no
// appenders configured, logs go to stdout.
func buildWriters(appenders []AppenderConfig) (io.Writer, error) {
	mw := NewMultiWriter()
	if len(appenders) == 0 {
		return mw.Add(os.Stdout), nil
	}
	for _, a := range appenders {
		switch a.Type {
		case "console":
			mw.Add(os.Stdout)
		case "file":
			var opts FileAppenderOptions
			if err := mapstructure.Decode(a.Options, &opts); err != nil {
				return nil, fmt.Errorf("file appender options: %w", err)
			}
			if opts.Filename == "" {
				return nil, fmt.Errorf("file appender requires 'filename'")
			}
			mw.Add(&lumberjack.Logger{
				Filename:   opts.Filename,
				MaxSize:    opts.MaxSize,
				MaxAge:     opts.MaxAge,
				MaxBackups: opts.MaxBackups,
				Compress:   opts.Compress,
			})
		default:
			return nil, fmt.Errorf("unknown appender type: %s", a.Type)
		}
	}
	return mw, nil
}
