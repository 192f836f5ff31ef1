package client

// Event identifies a lifecycle notification emitted around store operations.
// Events are advisory: they feed status indicators and logs, never control flow.
type Event string

const (
	EventLoggingIn        Event = "logging_in"
	EventLoginSuccessful  Event = "login_successful"
	EventRequestStarted   Event = "request_started"
	EventRequestEnded     Event = "request_ended"
	EventWaitingForReview Event = "waiting_for_review"
	EventInfo             Event = "info"
	EventError            Event = "error"
)

// Observer receives lifecycle events. A nil Observer discards all events.
type Observer func(event Event, message string)

// Emit invokes the observer if one is set.
func (o Observer) Emit(event Event, message string) {
	if o != nil {
		o(event, message)
	}
}
