package bus

const (
	// TopicDebugCommandV1 carries inbound messages that may be debug
	// commands, frontend to feature.
	TopicDebugCommandV1 = "debug.command.v1"
	// TopicDebugOutputV1 carries rendered debug output, feature to frontend.
	TopicDebugOutputV1 = "debug.output.v1"
)

func IsDebugTopic(topic string) bool {
	switch topic {
	case TopicDebugCommandV1, TopicDebugOutputV1:
		return true
	default:
		return false
	}
}
