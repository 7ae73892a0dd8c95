package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type (
	Level   string
	OutType int
)

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"

	infoFileOutName  = "service"
	errorFileOutName = "error"
	trackFileOutName = "track"

	// ConsoleOut 控制台输出
	ConsoleOut OutType = 1
	// InfoFileOut 一般日志
	InfoFileOut OutType = 2
	// ErrorFileOut 错误日志
	ErrorFileOut OutType = 4
	// TrackFileOut json日志
	TrackFileOut OutType = 8

	// NormalOut 一般输出
	NormalOut = InfoFileOut | ErrorFileOut
	// NormalOutWithTrack 有一般输出，也有json的track
	NormalOutWithTrack = NormalOut | TrackFileOut
)

var (
	levelMapping = map[Level]zapcore.Level{
		LevelDebug: zap.DebugLevel,
		LevelInfo:  zap.InfoLevel,
		LevelWarn:  zap.WarnLevel,
		LevelError: zap.ErrorLevel,
	}
	aliasMap = map[string]OutType{
		"console": ConsoleOut,
		"file":    NormalOut,
		"track":   TrackFileOut,
	}
	defaultLogger = newConsoleLogger()
)

// Logger 是注入到各个组件中的日志接口
// 每个组件在构造时拿到自己的Logger，不依赖全局单例
type Logger interface {
	Debug(format string, a ...any)
	Info(format string, a ...any)
	Warn(format string, a ...any)
	Error(format string, a ...any)
	// With 返回一个带前缀字段的Logger
	With(fields Fields) Logger
	Sync() error
}

func OutTypeAlias(name string) OutType {
	//为了方便记忆，可以使用文本配置，用|分割
	names := strings.Split(strings.ToLower(name), "|")
	var r OutType
	for _, s := range names {
		r |= aliasMap[strings.TrimSpace(s)]
	}
	return lo.Ternary(r == 0, ConsoleOut, r)
}

// ParseLevel 解析日志等级，无法识别时返回info
func ParseLevel(s string) Level {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelMapping[l]; ok {
		return l
	}
	return LevelInfo
}

// Default 仅输出到控制台的Logger，方便测试以及没有注入Logger的场合
func Default() Logger {
	return defaultLogger
}

// ZapLogger zap实现的Logger
type ZapLogger struct {
	zapLevel zap.AtomicLevel
	sugar    *zap.SugaredLogger
	tracker  *zap.Logger
	closers  []io.Closer
}

// ChangeLogLevel 运行时切换日志等级
func (zl *ZapLogger) ChangeLogLevel(level Level) {
	zl.zapLevel.SetLevel(levelMapping[ParseLevel(string(level))])
}

// IsDebugEnabled 是否打开了debug
func (zl *ZapLogger) IsDebugEnabled() bool {
	return zl.zapLevel.Enabled(zapcore.DebugLevel)
}

func (zl *ZapLogger) Debug(format string, a ...any) {
	zl.sugar.Debugf(format, a...)
}

func (zl *ZapLogger) Info(format string, a ...any) {
	zl.sugar.Infof(format, a...)
}

func (zl *ZapLogger) Warn(format string, a ...any) {
	zl.sugar.Warnf(format, a...)
}

func (zl *ZapLogger) Error(format string, a ...any) {
	zl.sugar.Errorf(format, a...)
}

func (zl *ZapLogger) With(fields Fields) Logger {
	return &fieldLogger{parent: zl, fields: fields}
}

// Track 输出json格式的日志，json日志在单独的文件里
func (zl *ZapLogger) Track(msg string, fields ...zap.Field) {
	zl.tracker.Info(msg, fields...)
}

func (zl *ZapLogger) Sync() error {
	_ = zl.tracker.Sync()
	return zl.sugar.Sync()
}

// Close 刷新并关闭所有日志文件
func (zl *ZapLogger) Close() error {
	_ = zl.Sync()
	for _, c := range zl.closers {
		_ = c.Close()
	}
	zl.closers = nil
	return nil
}

// Builder 初始化Logger的builder，由于配置项太多
type Builder struct {
	name         string
	path         string
	level        Level
	out          OutType
	maxSize      int //单位Mb，默认100
	maxAge       int //单位天，默认无限
	maxBackUps   int //最大保留旧日志个数，默认无限
	enableRotate bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Path 日志文件路径
func (b *Builder) Path(path string) *Builder {
	b.path = path
	return b
}

func (b *Builder) Level(level Level) *Builder {
	b.level = level
	return b
}

func (b *Builder) OutType(out OutType) *Builder {
	if out <= 0 {
		out = NormalOutWithTrack
	}
	b.out = out
	return b
}

func (b *Builder) MaxSize(size int) *Builder {
	b.maxSize = size
	return b
}

func (b *Builder) MaxAge(age int) *Builder {
	b.maxAge = age
	return b
}

func (b *Builder) MaxBackUps(count int) *Builder {
	b.maxBackUps = count
	return b
}

func (b *Builder) EnableRotate(enable bool) *Builder {
	b.enableRotate = enable
	return b
}

func getTrackEncodeConf() zapcore.EncoderConfig {
	encoderCfg := zap.NewProductionEncoderConfig()
	// meta数据，按ECS规定的格式来
	encoderCfg.TimeKey = "@timestamp"
	encoderCfg.LevelKey = "log.level"
	encoderCfg.MessageKey = "message"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return encoderCfg
}

// Build 根据配置创建Logger，每次调用都会产生一个新的实例
func (b *Builder) Build() (*ZapLogger, error) {
	if b.out == 0 {
		b.out = ConsoleOut
	}
	if b.out&NormalOutWithTrack > 0 && b.path == "" {
		b.path = "./log"
	}
	if b.path != "" {
		if err := os.MkdirAll(b.path, 0755); err != nil {
			return nil, fmt.Errorf("fail to create log directory: %w", err)
		}
	}
	if b.level == "" {
		b.level = LevelDebug
	}
	zl := &ZapLogger{zapLevel: zap.NewAtomicLevelAt(levelMapping[ParseLevel(string(b.level))])}

	// json的track日志
	trackSink := zapcore.AddSync(os.Stdout)
	if b.out&TrackFileOut > 0 {
		w, err := b.getWriter(b.fileName(trackFileOutName))
		if err != nil {
			return nil, err
		}
		zl.closers = append(zl.closers, w)
		trackSink = zapcore.AddSync(w)
	}
	zl.tracker = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(getTrackEncodeConf()), trackSink, zl.zapLevel))

	// 高优先级
	hp := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.WarnLevel && zl.zapLevel.Enabled(lvl)
	})
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	cores := make([]zapcore.Core, 0, 3)
	if b.out&ConsoleOut > 0 {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zl.zapLevel))
	}
	if b.out&InfoFileOut > 0 {
		w, err := b.getWriter(lo.Ternary(b.name == "", infoFileOutName, b.name) + ".log")
		if err != nil {
			return nil, err
		}
		zl.closers = append(zl.closers, w)
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(w), zl.zapLevel))
	}
	if b.out&ErrorFileOut > 0 {
		w, err := b.getWriter(b.fileName(errorFileOutName))
		if err != nil {
			return nil, err
		}
		zl.closers = append(zl.closers, w)
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(w), hp))
	}
	lg := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	if b.name != "" {
		lg = lg.Named(b.name)
	}
	zl.sugar = lg.Sugar()
	return zl, nil
}

func (b *Builder) fileName(kind string) string {
	return lo.Ternary(b.name == "", kind, b.name+"-"+kind) + ".log"
}

func (b *Builder) getWriter(name string) (io.WriteCloser, error) {
	fullName := filepath.Join(b.path, name)
	if !b.enableRotate {
		f, err := os.OpenFile(fullName, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("fail to open log file %s: %w", fullName, err)
		}
		return f, nil
	}
	return &lumberjack.Logger{
		Filename:   fullName,
		MaxSize:    b.maxSize,
		MaxAge:     b.maxAge,
		MaxBackups: b.maxBackUps,
	}, nil
}

// PanicStack 从panic中恢复并打印日志
// 注意recover必须在当前函数调用
func PanicStack(l Logger, prefix string, r any) {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	l.Error("%s: %v-> %s", prefix, r, buf[:n])
}

func newConsoleLogger() *ZapLogger {
	zl := &ZapLogger{zapLevel: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout), zl.zapLevel)
	zl.sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	zl.tracker = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(getTrackEncodeConf()),
		zapcore.AddSync(os.Stdout), zl.zapLevel))
	return zl
}

type nopLogger struct{}

// Nop 什么都不输出的Logger
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...any)  {}
func (nopLogger) Info(string, ...any)   {}
func (nopLogger) Warn(string, ...any)   {}
func (nopLogger) Error(string, ...any)  {}
func (n nopLogger) With(Fields) Logger { return n }
func (nopLogger) Sync() error           { return nil }
