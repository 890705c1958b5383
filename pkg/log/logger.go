package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// ParseLevel 将级别名称解析为 LogLevel，未知值回退到 Info
func ParseLevel(s string) LogLevel {
	name := strings.ToUpper(strings.TrimSpace(s))
	for level, levelName := range levelNames {
		if levelName == name {
			return level
		}
	}
	return LevelInfo
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Format selects the output encoding
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

type Logger struct {
	level  LogLevel
	logger zerolog.Logger
}

func NewLogger(level LogLevel) *Logger {
	return NewWithWriter(os.Stdout, level, FormatConsole)
}

// NewWithWriter 创建写入指定输出的日志记录器
func NewWithWriter(w io.Writer, level LogLevel, format Format) *Logger {
	if format != FormatJSON {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}
	return &Logger{
		level:  level,
		logger: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// SetLevel 设置日志级别
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// Level 返回当前日志级别
func (l *Logger) Level() LogLevel {
	return l.level
}

// With 返回带有附加字段的子日志记录器
func (l *Logger) With(key, value string) *Logger {
	return &Logger{
		level:  l.level,
		logger: l.logger.With().Str(key, value).Logger(),
	}
}

// Debug 记录调试信息
func (l *Logger) Debug(format string, args ...interface{}) {
	l.output(2, LevelDebug, format, args...)
}

// Info 记录信息
func (l *Logger) Info(format string, args ...interface{}) {
	l.output(2, LevelInfo, format, args...)
}

// Warn 记录警告信息
func (l *Logger) Warn(format string, args ...interface{}) {
	l.output(2, LevelWarn, format, args...)
}

// Error 记录错误信息
func (l *Logger) Error(format string, args ...interface{}) {
	l.output(2, LevelError, format, args...)
}

// Fatal 记录致命错误并退出
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.output(2, LevelFatal, format, args...)
	os.Exit(1)
}

// output 内部日志记录方法，skip 为调用栈深度
func (l *Logger) output(skip int, level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(skip)
	caller := "unknown"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	// WithLevel 不会因 Fatal 级别退出进程
	l.logger.WithLevel(level.zerolog()).
		Str("caller", caller).
		Msg(fmt.Sprintf(format, args...))
}

// FileLogger 是文件日志记录器
type FileLogger struct {
	*Logger
	file *os.File
}

// NewFileLogger 创建新的文件日志记录器，以 JSON 行写入文件
func NewFileLogger(logFile string, level LogLevel) (*FileLogger, error) {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}

	return &FileLogger{
		Logger: NewWithWriter(file, level, FormatJSON),
		file:   file,
	}, nil
}

// Writer 返回底层日志文件，可与 Tee 组合使用
func (l *FileLogger) Writer() io.Writer {
	return l.file
}

// Close 关闭日志文件
func (l *FileLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Tee 返回同时写入控制台与文件的日志记录器
func Tee(console io.Writer, file io.Writer, level LogLevel, format Format) *Logger {
	var out io.Writer = console
	if format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime}
	}
	return &Logger{
		level:  level,
		logger: zerolog.New(zerolog.MultiLevelWriter(out, file)).With().Timestamp().Logger(),
	}
}

// Global logger instance
var globalLogger atomic.Pointer[Logger]

// InitLogger 初始化全局日志记录器
func InitLogger(level LogLevel) {
	globalLogger.Store(NewLogger(level))
}

// SetLogger 替换全局日志记录器
func SetLogger(l *Logger) {
	if l != nil {
		globalLogger.Store(l)
	}
}

// GetLogger 获取全局日志记录器
func GetLogger() *Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	l := NewLogger(LevelInfo)
	if globalLogger.CompareAndSwap(nil, l) {
		return l
	}
	return globalLogger.Load()
}

// Convenience functions
func Debug(format string, args ...interface{}) {
	GetLogger().output(2, LevelDebug, format, args...)
}

func Info(format string, args ...interface{}) {
	GetLogger().output(2, LevelInfo, format, args...)
}

func Warn(format string, args ...interface{}) {
	GetLogger().output(2, LevelWarn, format, args...)
}

func Error(format string, args ...interface{}) {
	GetLogger().output(2, LevelError, format, args...)
}

func Fatal(format string, args ...interface{}) {
	GetLogger().output(2, LevelFatal, format, args...)
	os.Exit(1)
}
