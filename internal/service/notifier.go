package service

// Notifier publishes events to subscribers of a channel. A channel is a
// room id or a player id. Implementations must not block the caller.
type Notifier interface {
	Publish(channel, event string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, string, interface{}) {}
