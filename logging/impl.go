package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// callerSkip skips callerAt, entry, the level helper and the public method so the reported
// caller is the code that logged.
const callerSkip = 4

type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

// LogEntry is one formatted log line on its way to the appenders.
type LogEntry struct {
	zapcore.Entry
	fields []zapcore.Field
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

// Sublogger shares the parent's appenders but gets its own level, starting at the parent's.
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) enabled(level Level) bool {
	return GlobalLogLevel.Level() == zapcore.DebugLevel || level >= imp.level.Get()
}

func (imp *impl) entry(level Level, msg string) *LogEntry {
	e := &LogEntry{}
	e.Time = time.Now()
	if imp.inUTC {
		e.Time = e.Time.UTC()
	}
	e.LoggerName = imp.name
	e.Level = level.AsZap()
	e.Message = msg
	e.Caller = callerAt(callerSkip)
	return e
}

func (imp *impl) emit(e *LogEntry) {
	for _, appender := range imp.appenders {
		if err := appender.Write(e.Entry, e.fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (imp *impl) print(level Level, args []interface{}) {
	if imp.enabled(level) {
		imp.emit(imp.entry(level, fmt.Sprint(args...)))
	}
}

func (imp *impl) printf(level Level, template string, args []interface{}) {
	if imp.enabled(level) {
		imp.emit(imp.entry(level, fmt.Sprintf(template, args...)))
	}
}

func (imp *impl) printw(level Level, msg string, keysAndValues []interface{}) {
	if !imp.enabled(level) {
		return
	}
	e := imp.entry(level, msg)
	e.fields = fieldsFrom(keysAndValues)
	imp.emit(e)
}

// fieldsFrom pairs up alternating keys and values. A trailing key without a value is kept
// with an error in its place.
func fieldsFrom(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) {
	imp.print(DEBUG, args)
}

func (imp *impl) Info(args ...interface{}) {
	imp.print(INFO, args)
}

func (imp *impl) Warn(args ...interface{}) {
	imp.print(WARN, args)
}

func (imp *impl) Error(args ...interface{}) {
	imp.print(ERROR, args)
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.printf(DEBUG, template, args)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.printf(INFO, template, args)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.printf(WARN, template, args)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.printf(ERROR, template, args)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.printw(DEBUG, msg, keysAndValues)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.printw(INFO, msg, keysAndValues)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.printw(WARN, msg, keysAndValues)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.printw(ERROR, msg, keysAndValues)
}

func callerAt(skip int) zapcore.EntryCaller {
	var caller zapcore.EntryCaller
	var ok bool
	caller.PC, caller.File, caller.Line, ok = runtime.Caller(skip)
	if !ok {
		return caller
	}
	caller.Defined = true
	if fn := runtime.FuncForPC(caller.PC); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
