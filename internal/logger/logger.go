// Package logger 提供统一的日志工具
//
// 每条日志一行: "时间 | 级别 | 内容"。控制台输出默认写到 stderr，
// stdout 留给命令行的匹配结果；可以同时追加写入一个日志文件。
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level 日志级别
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	// OFF 关闭全部日志
	OFF
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "OFF"}

func (l Level) String() string {
	if l < DEBUG || l > OFF {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel 解析日志级别字符串（不区分大小写），无法识别时为 INFO
func ParseLevel(s string) Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return WARN
	}
	for i, name := range levelNames {
		if s == name {
			return Level(i)
		}
	}
	return INFO
}

// Logger 日志记录器
type Logger struct {
	mu      sync.Mutex
	level   Level
	console io.Writer
	file    *os.File
	now     func() time.Time
}

var defaultLogger = New()

// New 创建级别为 INFO、输出到 stderr 的 Logger
func New() *Logger {
	return &Logger{
		level:   INFO,
		console: os.Stderr,
		now:     time.Now,
	}
}

// Default 获取默认 logger
func Default() *Logger {
	return defaultLogger
}

// SetLevel 设置最低输出级别，OFF 关闭全部日志
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Level 返回当前日志级别
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Enabled 该级别的日志是否会被输出，用于跳过代价较高的参数计算
func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level < OFF && level >= l.level
}

// SetOutput 替换控制台输出（nil 恢复为 stderr，io.Discard 关闭控制台）
func (l *Logger) SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	l.mu.Lock()
	l.console = w
	l.mu.Unlock()
}

// SetFile 追加写入日志文件，path 为空时只关闭当前文件
func (l *Logger) SetFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.closeFile(); err != nil {
		return err
	}
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("无法打开日志文件: %w", err)
	}
	l.file = f
	return nil
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeFile()
}

func (l *Logger) closeFile() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) write(level Level, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level >= OFF || level < l.level {
		return
	}

	line := fmt.Sprintf("%s | %-5s | %s\n",
		l.now().Format("15:04:05.000"), level, fmt.Sprintf(format, args...))
	io.WriteString(l.console, line)
	if l.file != nil {
		l.file.WriteString(line)
	}
}

// Debug 输出 DEBUG 级别日志
func (l *Logger) Debug(format string, args ...interface{}) { l.write(DEBUG, format, args) }

// Info 输出 INFO 级别日志
func (l *Logger) Info(format string, args ...interface{}) { l.write(INFO, format, args) }

// Warn 输出 WARN 级别日志
func (l *Logger) Warn(format string, args ...interface{}) { l.write(WARN, format, args) }

// Error 输出 ERROR 级别日志
func (l *Logger) Error(format string, args ...interface{}) { l.write(ERROR, format, args) }

// LogStage 记录匹配流程中某个阶段的结果和耗时
// 阶段完成记为 DEBUG，流程在该阶段提前结束记为 INFO
func (l *Logger) LogStage(stage string, ok bool, elapsedMs float64, detail string) {
	level, status := DEBUG, "OK"
	if !ok {
		level, status = INFO, "NG"
	}
	l.write(level, "%-5s | %s | %7.2fms | %s", []interface{}{stage, status, elapsedMs, detail})
}

func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }
func Info(format string, args ...interface{})  { defaultLogger.Info(format, args...) }
func Warn(format string, args ...interface{})  { defaultLogger.Warn(format, args...) }
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }

func LogStage(stage string, ok bool, elapsedMs float64, detail string) {
	defaultLogger.LogStage(stage, ok, elapsedMs, detail)
}
