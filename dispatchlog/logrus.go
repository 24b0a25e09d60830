package dispatchlog

import "github.com/sirupsen/logrus"

// Logrus adapts a *logrus.Logger to the Logger interface, giving the
// dispatcher structured, leveled logging out of the box instead of a
// hand-rolled console writer.
type Logrus struct {
	entry *logrus.Entry
}

// NewLogrus wraps l (or logrus.StandardLogger() if l is nil) as a Logger.
func NewLogrus(l *logrus.Logger) *Logrus {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Logrus{entry: logrus.NewEntry(l)}
}

func (l *Logrus) fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}

func (l *Logrus) Debug(msg string, fields ...interface{}) {
	l.entry.WithFields(l.fields(fields)).Debug(msg)
}

func (l *Logrus) Info(msg string, fields ...interface{}) {
	l.entry.WithFields(l.fields(fields)).Info(msg)
}

func (l *Logrus) Warn(msg string, fields ...interface{}) {
	l.entry.WithFields(l.fields(fields)).Warn(msg)
}

func (l *Logrus) Error(msg string, fields ...interface{}) {
	l.entry.WithFields(l.fields(fields)).Error(msg)
}
