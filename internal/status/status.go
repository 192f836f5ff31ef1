// Package status bridges the core's lifecycle events to terminal output.
package status

import (
	"go.uber.org/zap"

	"github.com/shopkit/storecmd/client"
)

// Observer returns a lifecycle observer that reports events through the
// given logger. Request start/end events are demoted to debug so normal runs
// stay quiet between the interesting milestones.
func Observer(log *zap.Logger) client.Observer {
	return func(event client.Event, message string) {
		switch event {
		case client.EventRequestStarted, client.EventRequestEnded:
			log.Debug(message, zap.String("event", string(event)))
		case client.EventError:
			log.Error(message)
		default:
			log.Info(message)
		}
	}
}
