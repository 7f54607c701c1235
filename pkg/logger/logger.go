package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	log     = zap.NewNop()
	// wrapped 供包级函数使用，多跳过一层调用栈
	wrapped = log
)

// Init 初始化全局 logger，format 为 json 时使用生产编码器
func Init(level, format string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set 替换全局 logger（测试中可注入 zaptest/observer）
func Set(l *zap.Logger) {
	mu.Lock()
	log = l
	wrapped = l.WithOptions(zap.AddCallerSkip(1))
	mu.Unlock()
}

// L 返回全局 logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func w() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return wrapped
}

func Debug(msg string, fields ...zap.Field) { w().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { w().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { w().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { w().Error(msg, fields...) }

// Sync 刷新缓冲
func Sync() { _ = L().Sync() }
