// Package audit is the append-only activity trail: a side-channel record of
// who registered, logged in, ordered, and so on. It is fire-and-forget by
// design; a full inbox drops the entry rather than slowing a request down.
package audit

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Fields map[string]any

// Recorder is what handlers depend on, so tests can swap in a stub and nothing
// holds a global log stream.
type Recorder interface {
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

type entry struct {
	level  zerolog.Level
	msg    string
	fields Fields
}

type Logger struct {
	zl      zerolog.Logger
	inbox   chan entry
	closeCh chan struct{}
}

// NewFileLogger appends to path and mirrors entries to stdout.
func NewFileLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return New(zerolog.MultiLevelWriter(f, zerolog.ConsoleWriter{Out: os.Stdout})), nil
}

func New(w io.Writer) *Logger {
	return &Logger{
		zl:      zerolog.New(w).With().Timestamp().Logger(),
		inbox:   make(chan entry, 256),
		closeCh: make(chan struct{}),
	}
}

// Start drains the inbox until the context is cancelled or Close is called,
// then flushes what is left. Same lifecycle as the kafka producer.
func (l *Logger) Start(ctx context.Context) {
	go func() {
		defer close(l.closeCh)
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case e, ok := <-l.inbox:
						if !ok {
							return
						}
						l.write(e)
					default:
						return
					}
				}
			case e, ok := <-l.inbox:
				if !ok {
					return
				}
				l.write(e)
			}
		}
	}()
}

func (l *Logger) write(e entry) {
	ev := l.zl.WithLevel(e.level)
	for k, v := range e.fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(e.msg)
}

func (l *Logger) record(level zerolog.Level, msg string, fields Fields) {
	select {
	case l.inbox <- entry{level: level, msg: msg, fields: fields}:
	default: // inbox full, drop rather than block the request
	}
}

func (l *Logger) Info(msg string, fields Fields)  { l.record(zerolog.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields Fields)  { l.record(zerolog.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields Fields) { l.record(zerolog.ErrorLevel, msg, fields) }

func (l *Logger) Close()      { close(l.inbox) }
func (l *Logger) WaitClosed() { <-l.closeCh }
