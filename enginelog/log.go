// Package enginelog centralizes lithdb's structured logging. The wal
// package (record writes, replay) and the engine package (inserts) log
// through here instead of printing directly, so a caller embedding
// lithdb can redirect or silence it with a single logrus hook. Packages
// that detect a spec §7 Fatal condition do not log it here; they return
// *enginerr.Fatal.
package enginelog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetLevel adjusts verbosity; callers embedding lithdb as a library
// typically only want Warn and above.
func SetLevel(level logrus.Level) {
	log.SetLevel(level)
}

// Logger exposes the underlying *logrus.Logger for packages that want
// field-rich entries (WithField/WithFields) rather than the plain
// helpers below.
func Logger() *logrus.Logger { return log }

func Info(args ...any)  { log.Info(args...) }
func Warn(args ...any)  { log.Warn(args...) }
func Error(args ...any) { log.Error(args...) }

func Infof(format string, args ...any)  { log.Infof(format, args...) }
func Warnf(format string, args ...any)  { log.Warnf(format, args...) }
func Errorf(format string, args ...any) { log.Errorf(format, args...) }

// Fatal logs at the Fatal level and terminates the process, matching
// spec §7: "The process exits; no partial state is guaranteed." Only
// call this from the outermost layer (engine/cmd) that owns the
// process lifetime — lower packages should return *enginerr.Fatal and
// let the caller decide whether to invoke this.
func Fatal(args ...any) { log.Fatal(args...) }

func WithField(key string, value any) *logrus.Entry {
	return log.WithField(key, value)
}
