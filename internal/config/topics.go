package config

const (
	// TopicDeadLetter is the NSQ topic carrying sync jobs whose consecutive
	// failures reached the dead-letter threshold.
	TopicDeadLetter = "sync.dead_letter"
)
