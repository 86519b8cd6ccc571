package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// marshalFailLine is emitted when an entry cannot be serialized, so the sink
// still records that a log event happened.
const marshalFailLine = `{"level":"error","msg":"log entry marshal failed"}`

var (
	logOnce sync.Once
	logSink *log.Logger
)

// Logger returns the process-wide line logger. Request lines and audit events
// all funnel through it, which lets tests redirect a single sink.
func Logger() *log.Logger {
	logOnce.Do(func() {
		logSink = log.New(os.Stdout, "", 0)
	})
	return logSink
}

// LogRequest writes entry as one JSON object per line.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(marshalFailLine)
		return
	}
	Logger().Println(string(data))
}
