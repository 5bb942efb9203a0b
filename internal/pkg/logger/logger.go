package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化参数
type LogOption struct {
	Format   string // console / json
	LogDir   string // 为空时只输出到 stderr
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩滚动后的旧日志
}

const (
	logFileName   = "deployer.log"
	maxSizeMB     = 100
	maxBackups    = 10
	maxAgeDays    = 30
	defaultFormat = "console"
)

var (
	mu     sync.RWMutex
	sugar  = newDefaultLogger()
	closer func() error
)

func newDefaultLogger() *zap.SugaredLogger {
	core := zapcore.NewCore(newEncoder(defaultFormat), zapcore.Lock(os.Stderr), zapcore.InfoLevel)
	return zap.New(core).Sugar()
}

// Init 根据配置初始化全局日志；可重复调用，后一次覆盖前一次
func Init(opt LogOption) error {
	level, err := parseLevel(opt.Level)
	if err != nil {
		return err
	}

	format := opt.Format
	if format == "" {
		format = defaultFormat
	}

	// 诊断信息始终写 stderr，stdout 留给命令结果
	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	var fileCloser func() error
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return err
		}
		lj := &lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, logFileName),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   opt.Compress,
		}
		sinks = append(sinks, zapcore.AddSync(lj))
		fileCloser = lj.Close
	}

	core := zapcore.NewCore(newEncoder(format), zapcore.NewMultiWriteSyncer(sinks...), level)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()

	mu.Lock()
	old, oldCloser := sugar, closer
	sugar, closer = l, fileCloser
	mu.Unlock()

	_ = old.Sync()
	if oldCloser != nil {
		_ = oldCloser()
	}
	return nil
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, err
	}
	return level, nil
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, args ...any) { current().Debugf(format, args...) }
func Infof(format string, args ...any)  { current().Infof(format, args...) }
func Warnf(format string, args ...any)  { current().Warnf(format, args...) }
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Sync 刷新缓冲并关闭日志文件，进程退出前调用
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = sugar.Sync()
	if closer != nil {
		_ = closer()
		closer = nil
	}
}
