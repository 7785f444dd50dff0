package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type LogLevel uint8

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Log files rotate once they pass this size.
const rotateThreshold = 64 << 20

// How many written lines between rotation checks.
const rotateCheckInterval = 1024

// Logger writes formatted lines through a buffered channel so event
// processing never blocks on file I/O. Lines are dropped when the buffer
// is full rather than stalling the caller.
type Logger struct {
	level    LogLevel
	output   *os.File
	ownFile  bool
	rotation *Rotation
	logChan  chan string
	wg       sync.WaitGroup
}

func NewLogger(level LogLevel, path string) (*Logger, error) {
	l := &Logger{
		level:   level,
		output:  os.Stderr,
		logChan: make(chan string, 8192),
	}

	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.output = file
		l.ownFile = true
		l.rotation = NewRotation(path, rotateThreshold)
	}

	l.wg.Add(1)
	go l.worker()

	return l, nil
}

func (l *Logger) worker() {
	defer l.wg.Done()
	lines := 0
	for line := range l.logChan {
		l.output.WriteString(line)
		lines++
		if l.ownFile && lines%rotateCheckInterval == 0 {
			l.maybeRotate()
		}
	}
}

// maybeRotate swaps in a fresh log file when the current one is too big.
// Only the worker goroutine touches l.output, so no locking is needed.
func (l *Logger) maybeRotate() {
	if l.rotation == nil || !l.rotation.ShouldRotate() {
		return
	}

	l.output.Close()
	if _, err := l.rotation.Rotate(); err != nil {
		// Rename failed; keep appending to the old file.
		fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
	}

	file, err := os.OpenFile(l.rotation.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to reopen log file: %v\n", err)
		l.output = os.Stderr
		l.ownFile = false
		return
	}
	l.output = file
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("[%s] [%s] %s\n", timestamp, levelString(level), fmt.Sprintf(format, args...))

	select {
	case l.logChan <- line:
	default:
		// Drop rather than block the event path.
	}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

func levelString(level LogLevel) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l *Logger) Close() error {
	close(l.logChan)
	l.wg.Wait()
	if l.ownFile {
		return l.output.Close()
	}
	return nil
}

var GlobalLogger *Logger

func InitGlobalLogger(level LogLevel, path string) error {
	logger, err := NewLogger(level, path)
	if err != nil {
		return err
	}
	GlobalLogger = logger
	return nil
}

func Debug(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Debug(format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Info(format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Warn(format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Error(format, args...)
	}
}

// Script writes a diagnostic line emitted by a user action script, tagged
// with the owning guild so operators can attribute it.
func Script(guildID string, value interface{}) {
	if GlobalLogger != nil {
		GlobalLogger.Info("[script %s] %v", guildID, value)
	}
}
