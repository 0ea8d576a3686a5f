package logger

import (
	"io"
	"time"
)

// Null discards every event. Used when no logger is configured.
type Null struct{ level LogLevel }

func NewNull() *Null { return &Null{level: LevelNone} }

func (n *Null) Debug(format string, args ...any)                     {}
func (n *Null) Info(format string, args ...any)                      {}
func (n *Null) Warn(format string, args ...any)                      {}
func (n *Null) Error(format string, args ...any)                     {}
func (n *Null) Query(sql string, args []any, duration time.Duration) {}
func (n *Null) SetLevel(level LogLevel)                               { n.level = level }
func (n *Null) GetLevel() LogLevel                                    { return n.level }
func (n *Null) SetOutput(w io.Writer)                                 {}
func (n *Null) Close() error                                          { return nil }
