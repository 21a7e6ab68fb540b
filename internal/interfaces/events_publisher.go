package interfaces

// EventPublisher delivers ledger-changed notifications to interested
// consumers after a unit of work commits. Publishing is best effort and
// never part of the unit of work itself.
type EventPublisher interface {
	Publish(topic string, event any) error
}
