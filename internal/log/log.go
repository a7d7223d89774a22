package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Options configures the process-wide logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Writer io.Writer
}

var (
	mu     sync.RWMutex
	logger zerolog.Logger
	inited bool
)

// Init (re)configures the global logger. It may be called again after the
// config file has been loaded.
func Init(opt Options) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.ToLower(opt.Format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	l := zerolog.New(w).Level(zerologLevel(ParseLevel(opt.Level))).With().Timestamp().Logger()

	mu.Lock()
	logger = l
	inited = true
	mu.Unlock()
}

// initLogger installs the default stderr console logger on first use.
func initLogger() zerolog.Logger {
	mu.RLock()
	if inited {
		l := logger
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	Init(Options{Level: "info"})

	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func SetLevel(l Level) {
	cur := initLogger()
	mu.Lock()
	logger = cur.Level(zerologLevel(l))
	mu.Unlock()
}

// ParseLevel maps a config string to a Level. Unknown values map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Debug(msg string, kv ...any) {
	l := initLogger()
	emit(l.Debug(), msg, kv...)
}

func Info(msg string, kv ...any) {
	l := initLogger()
	emit(l.Info(), msg, kv...)
}

// Warn is used for lenient paths that degrade instead of failing, such as
// an unparseable date cell.
func Warn(msg string, kv ...any) {
	l := initLogger()
	emit(l.Warn(), msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	l := initLogger()
	emit(l.Error().Err(err), msg, kv...)
}

func emit(ev *zerolog.Event, msg string, kv ...any) {
	if ev == nil {
		return
	}
	// Expect kv as pairs: key, value, key, value, ...
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	// If odd number of args, last one is ignored.
	ev.Msg(msg)
}
