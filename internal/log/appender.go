package log

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/pktforge/internal/config"
)

// MultiWriter fans log output out to every appender. A failing appender does
// not stop the others.
type MultiWriter struct {
	writers []io.Writer
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		_, e := w.Write(p)
		if e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

type ConsoleAppenderOpt struct {
	Target string `mapstructure:"target"` // stderr (default) | stdout
}

func (m *MultiWriter) AddConsoleAppender(options ConsoleAppenderOpt) *MultiWriter {
	if options.Target == "stdout" {
		return m.Add(os.Stdout)
	}
	return m.Add(os.Stderr)
}

func buildWriter(appenders []config.AppenderConfig) (*MultiWriter, error) {
	m := NewMultiWriter()
	if len(appenders) == 0 {
		return m.AddConsoleAppender(ConsoleAppenderOpt{}), nil
	}

	for i, a := range appenders {
		switch a.Type {
		case "console":
			var opt ConsoleAppenderOpt
			if err := decodeOptions(a.Options, &opt); err != nil {
				return nil, fmt.Errorf("appender %d: %w", i, err)
			}
			m.AddConsoleAppender(opt)
		case "file":
			var opt FileAppenderOpt
			if err := decodeOptions(a.Options, &opt); err != nil {
				return nil, fmt.Errorf("appender %d: %w", i, err)
			}
			if opt.Filename == "" {
				return nil, fmt.Errorf("appender %d: file appender requires filename", i)
			}
			m.AddFileAppender(opt)
		default:
			return nil, fmt.Errorf("appender %d: unknown type %q", i, a.Type)
		}
	}
	return m, nil
}

func decodeOptions(options map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}
