package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type CrawlerLogger struct {
	file       *os.File
	logger     *log.Logger
	multiWrite io.Writer
	debug      bool
}

// NewCrawlerLogger writes to stdout and, when logsDir is not empty, to
// logsDir/<run>/run_<run>_<timestamp>.log as well.
func NewCrawlerLogger(logsDir, runName string) (*CrawlerLogger, error) {
	if logsDir == "" {
		return NewWriterLogger(os.Stdout), nil
	}

	// Sanitize run name for file system
	sanitized := strings.ReplaceAll(strings.ToLower(runName), " ", "_")
	if sanitized == "" {
		sanitized = "run"
	}

	runDir := filepath.Join(logsDir, sanitized)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(runDir, fmt.Sprintf("run_%s_%s.log", sanitized, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	multiWrite := io.MultiWriter(os.Stdout, file)
	logger := log.New(multiWrite, "", log.Ldate|log.Ltime|log.Lmicroseconds)

	return &CrawlerLogger{
		file:       file,
		logger:     logger,
		multiWrite: multiWrite,
		debug:      true,
	}, nil
}

// NewWriterLogger logs to w only.
func NewWriterLogger(w io.Writer) *CrawlerLogger {
	return &CrawlerLogger{
		logger:     log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds),
		multiWrite: w,
		debug:      true,
	}
}

// Discard returns a logger that drops everything.
func Discard() *CrawlerLogger {
	return NewWriterLogger(io.Discard)
}

// SetDebug toggles LogDebug output.
func (cl *CrawlerLogger) SetDebug(enabled bool) {
	cl.debug = enabled
}

func (cl *CrawlerLogger) LogInfo(format string, v ...interface{}) {
	cl.log("INFO", format, v...)
}

func (cl *CrawlerLogger) LogWarn(format string, v ...interface{}) {
	cl.log("WARN", format, v...)
}

func (cl *CrawlerLogger) LogError(format string, v ...interface{}) {
	cl.log("ERROR", format, v...)
}

func (cl *CrawlerLogger) LogDebug(format string, v ...interface{}) {
	if cl == nil || !cl.debug {
		return
	}
	cl.log("DEBUG", format, v...)
}

func (cl *CrawlerLogger) log(level string, format string, v ...interface{}) {
	if cl == nil {
		return
	}
	message := fmt.Sprintf(format, v...)
	cl.logger.Printf("[%s] %s", level, message)
}

// Path returns the log file path, or "" when logging to a plain writer.
func (cl *CrawlerLogger) Path() string {
	if cl == nil || cl.file == nil {
		return ""
	}
	return cl.file.Name()
}

func (cl *CrawlerLogger) Close() error {
	if cl == nil || cl.file == nil {
		return nil
	}
	return cl.file.Close()
}
