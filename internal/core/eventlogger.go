package core

import "go.uber.org/zap"

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// NewEventLogObserver returns an Observer that records every event in el.
// Progress events fire every hour for every worker and are skipped.
// Write failures are logged and otherwise ignored.
func NewEventLogObserver(el EventLogger, log *zap.Logger) Observer {
	return ObserverFunc(func(e Event) {
		if _, ok := e.(TaskProgressed); ok {
			return
		}
		if err := el.LogEvent(e.Name(), e.Data()); err != nil {
			log.Warn("recording event", zap.String("event", e.Name()), zap.Error(err))
		}
	})
}
