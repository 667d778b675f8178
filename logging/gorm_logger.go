package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const slowQuery = 200 * time.Millisecond

// GormLogger routes jinzhu/gorm's Print calls to zap. Install it with
// db.SetLogger.
type GormLogger struct {
	ZapLogger *zap.Logger
}

func NewGormLogger(zapLogger *zap.Logger) *GormLogger {
	return &GormLogger{ZapLogger: zapLogger.WithOptions(zap.AddCallerSkip(1))}
}

// Print receives ("sql", source, duration, sql, vars, rows) for queries and
// ("log", source, values...) for everything else.
func (l *GormLogger) Print(v ...interface{}) {
	if len(v) < 2 {
		return
	}
	source := fmt.Sprint(v[1])

	if v[0] == "sql" && len(v) >= 6 {
		elapsed, _ := v[2].(time.Duration)
		rows, _ := v[5].(int64)
		fields := []zap.Field{
			zap.String("source", source),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
			zap.String("sql", fmt.Sprint(v[3])),
		}
		if elapsed > slowQuery {
			l.ZapLogger.Warn("gorm query [SLOW]", fields...)
			return
		}
		l.ZapLogger.Debug("gorm query", fields...)
		return
	}

	l.ZapLogger.Warn("gorm", zap.String("source", source), zap.String("message", fmt.Sprint(v[2:]...)))
}
