package websocket

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLine is the payload of a "log" message.
type LogLine struct {
	Time    time.Time              `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// LogHook streams log entries to the hub's clients, the way task output used
// to scroll in a terminal pane.
type LogHook struct {
	hub    *Hub
	levels []logrus.Level
}

func NewLogHook(hub *Hub, level logrus.Level) *LogHook {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}
	return &LogHook{hub: hub, levels: levels}
}

func (h *LogHook) Levels() []logrus.Level {
	return h.levels
}

func (h *LogHook) Fire(entry *logrus.Entry) error {
	if h.hub.Clients() == 0 {
		return nil
	}

	line := LogLine{Time: entry.Time, Level: entry.Level.String(), Message: entry.Message}
	if len(entry.Data) > 0 {
		line.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			switch v := v.(type) {
			case error:
				line.Fields[k] = v.Error()
			case fmt.Stringer:
				line.Fields[k] = v.String()
			default:
				line.Fields[k] = v
			}
		}
	}
	h.hub.Broadcast(Message{Type: "log", Data: line})
	return nil
}
