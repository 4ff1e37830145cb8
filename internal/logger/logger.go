// Package logger writes levelled key/value lines for the storefront.
// Customer fields are masked unless the service runs in development at DEBUG.
package logger

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < DEBUG || l > ERROR {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps LOG_LEVEL values to a level; anything unknown is INFO.
func ParseLevel(level string) LogLevel {
	for i, name := range levelNames {
		if strings.EqualFold(level, name) {
			return LogLevel(i)
		}
	}
	return INFO
}

type Logger struct {
	mu    sync.RWMutex
	level LogLevel
	out   *log.Logger
	isDev bool
}

var std = &Logger{level: INFO, out: log.New(os.Stdout, "", log.LstdFlags)}

// Configure applies LOG_LEVEL and the environment to the package logger.
func Configure(level string, isDev bool) {
	std.mu.Lock()
	std.level = ParseLevel(level)
	std.isDev = isDev
	std.mu.Unlock()
}

func SetLevel(level LogLevel) {
	std.mu.Lock()
	std.level = level
	std.mu.Unlock()
}

// SetOutput redirects the package logger, mostly for tests.
func SetOutput(w io.Writer) {
	std.out.SetOutput(w)
}

type masker struct {
	fragment string
	mask     func(value interface{}) interface{}
}

// Field-name fragments, checked in order. The first match wins, so
// "session" also covers payment session ids and "client" the cookie id.
var maskers = []masker{
	{"password", hidden},
	{"secret", hidden},
	{"phone", hidden},
	{"postal", hidden},
	{"street", hidden},
	{"email", maskEmail},
	{"identifier", maskEmail},
	{"user_id", pseudonym},
	{"userid", pseudonym},
	{"token", shorten},
	{"session", shorten},
	{"client", shorten},
}

func hidden(interface{}) interface{} {
	return "[REDACTED]"
}

func maskEmail(value interface{}) interface{} {
	email := fmt.Sprint(value)
	if email == "" {
		return ""
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "****"
	}
	if len(local) <= 2 {
		return "****@" + domain
	}
	return local[:1] + "****" + local[len(local)-1:] + "@" + domain
}

// pseudonym keeps user ids correlatable across lines without printing them.
func pseudonym(value interface{}) interface{} {
	sum := sha256.Sum256([]byte(fmt.Sprint(value)))
	return fmt.Sprintf("user_%x", sum[:4])
}

func shorten(value interface{}) interface{} {
	id := fmt.Sprint(value)
	if len(id) <= 8 {
		return id
	}
	return id[:4] + "****"
}

func mask(key string, value interface{}) interface{} {
	k := strings.ToLower(key)
	for _, m := range maskers {
		if strings.Contains(k, m.fragment) {
			return m.mask(value)
		}
	}
	// identifiers logged under a generic key still look like addresses
	if s, ok := value.(string); ok && strings.Contains(s, "@") {
		return maskEmail(s)
	}
	return value
}

func (l *Logger) format(level LogLevel, msg string, keysAndValues ...interface{}) string {
	l.mu.RLock()
	raw := l.isDev && l.level == DEBUG
	l.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	if len(keysAndValues) == 0 {
		return b.String()
	}

	b.WriteString(" {")
	for i := 0; i < len(keysAndValues); i += 2 {
		if i > 0 {
			b.WriteString(",")
		}
		key := fmt.Sprint(keysAndValues[i])
		var value interface{} = ""
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		if !raw {
			value = mask(key, value)
		}
		fmt.Fprintf(&b, " %s=%v", key, value)
	}
	b.WriteString(" }")
	return b.String()
}

func (l *Logger) log(level LogLevel, msg string, keysAndValues []interface{}) {
	l.mu.RLock()
	enabled := level >= l.level
	l.mu.RUnlock()
	if enabled {
		l.out.Println(l.format(level, msg, keysAndValues...))
	}
}

func Debug(msg string, keysAndValues ...interface{}) { std.log(DEBUG, msg, keysAndValues) }
func Info(msg string, keysAndValues ...interface{})  { std.log(INFO, msg, keysAndValues) }
func Warn(msg string, keysAndValues ...interface{})  { std.log(WARN, msg, keysAndValues) }
func Error(msg string, keysAndValues ...interface{}) { std.log(ERROR, msg, keysAndValues) }
