package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CustomFormatter 自定义日志格式
type CustomFormatter struct {
	logrus.JSONFormatter
}

// Format 实现自定义格式化, 调用位置由 logrus 的 ReportCaller 提供
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	// 添加进程信息
	entry.Data["pid"] = os.Getpid()

	// 添加协程ID
	entry.Data["goroutine_id"] = getGoroutineID()

	return f.JSONFormatter.Format(entry)
}

// callerPrettyfier 只保留函数名和 文件名:行号
func callerPrettyfier(frame *runtime.Frame) (function string, file string) {
	return filepath.Base(frame.Function), fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}

// LogOptions 日志配置, File 为空时只输出到 stdout
type LogOptions struct {
	Level      string
	File       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	Stdout     bool
}

// Log is the global logger instance
var (
	Log  *logrus.Logger
	once sync.Once
	mu   sync.Mutex
)

func newLogger() *logrus.Logger {
	l := logrus.New()

	// 使用自定义格式化器
	l.SetFormatter(&CustomFormatter{
		JSONFormatter: logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "@timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		},
	})
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)

	// 添加堆栈跟踪
	l.SetReportCaller(true)
	return l
}

// InitLogger 按配置设置全局日志的输出和级别, 可以重复调用
func InitLogger(opts LogOptions) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		// 创建日志目录
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		rotate := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   opts.Compress,
		}
		out = rotate
		if opts.Stdout {
			out = io.MultiWriter(os.Stdout, rotate)
		}
	}

	l := GetLogger()
	mu.Lock()
	defer mu.Unlock()
	l.SetOutput(out)
	l.SetLevel(level)
	return nil
}

// GetLogger returns the singleton logger instance
func GetLogger() *logrus.Logger {
	once.Do(func() { Log = newLogger() })
	return Log
}

// getGoroutineID 获取当前协程ID
func getGoroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	// 解析协程ID
	var id uint64
	fmt.Sscanf(string(b), "goroutine %d", &id)
	return id
}
