package flog

import (
	"fmt"
	"os"
	"time"
)

type Level int

const None Level = -1
const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

var (
	minLevel = Info
	logCh    = make(chan string, 1024)
	started  bool
)

// SetLevel sets the minimum level logged and starts the background drain
// goroutine the first time it is called with a level other than None.
func SetLevel(l int) {
	minLevel = Level(l)
	if l != -1 && !started {
		started = true
		go func() {
			for msg := range logCh {
				fmt.Fprint(os.Stdout, msg)
			}
		}()
	}
}

func logf(level Level, format string, args ...any) {
	if level < minLevel || minLevel == None {
		return
	}

	now := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s\n", now, level.String(), fmt.Sprintf(format, args...))

	select {
	case logCh <- line:
	default:
	}
}

// ParseLevel maps a config string ("debug", "info", "warn", "error",
// "fatal", "none") to its Level, defaulting to Info for anything else.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn":
		return Warn
	case "error":
		return Error
	case "fatal":
		return Fatal
	case "none":
		return None
	default:
		return Info
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	case None:
		return "None"
	default:
		return "UNKNOWN"
	}
}

func Debugf(format string, args ...any) { logf(Debug, format, args...) }
func Infof(format string, args ...any)  { logf(Info, format, args...) }
func Warnf(format string, args ...any)  { logf(Warn, format, args...) }
func Errorf(format string, args ...any) { logf(Error, format, args...) }
func Fatalf(format string, args ...any) {
	// Fatal messages must be delivered even under a full channel, so use a
	// blocking write instead of the select/default every other level uses.
	if minLevel != None && Fatal >= minLevel {
		now := time.Now().Format("2006-01-02 15:04:05.000")
		line := fmt.Sprintf("%s [%s] %s\n", now, Fatal.String(), fmt.Sprintf(format, args...))
		logCh <- line
		time.Sleep(50 * time.Millisecond)
	}
	os.Exit(1)
}

func Close() { close(logCh) }
