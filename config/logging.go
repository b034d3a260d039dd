package config

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging points the standard logger at stdout, a rotating file or both.
// The returned writer is also used for HTTP access logs; close it on shutdown.
func SetupLogging(cfg LoggingConfig) io.WriteCloser {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)

	var out io.WriteCloser
	switch cfg.Output {
	case "file":
		out = newRotatingFile(cfg)
	case "both":
		rf := newRotatingFile(cfg)
		out = multiWriteCloser{Writer: io.MultiWriter(os.Stdout, rf), closers: []io.Closer{rf}}
	default:
		out = nopCloser{os.Stdout}
	}

	log.SetOutput(out)
	return out
}

func newRotatingFile(cfg LoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

type multiWriteCloser struct {
	io.Writer
	closers []io.Closer
}

func (m multiWriteCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
