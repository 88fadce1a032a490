package mqtt

import "strings"

// Topic layout relative to the queue prefix:
//
//	<device>/status        retained "online" / "offline"
//	<device>/e/<event>     Event
//	<device>/f/<function>  FunctionCall
//	<device>/r             FunctionResult
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Topics builds topics of a device.
type Topics string

// DeviceTopics returns Topics for the device.
func DeviceTopics(deviceID string) Topics {
	return Topics(deviceID)
}

// DeviceID returns the device part.
func (t Topics) DeviceID() string { return string(t) }

// Status is the retained status topic.
func (t Topics) Status() string { return string(t) + "/status" }

// Event is the topic of event name.
func (t Topics) Event(name string) string { return string(t) + "/e/" + name }

// Events is the wildcard of all events.
func (t Topics) Events() string { return string(t) + "/e/#" }

// Function is the topic for calling a function.
func (t Topics) Function(name string) string { return string(t) + "/f/" + name }

// Functions is the wildcard of all function calls.
func (t Topics) Functions() string { return string(t) + "/f/+" }

// Result is the topic of function results.
func (t Topics) Result() string { return string(t) + "/r" }

// AllStatus is the wildcard matching status of every device.
const AllStatus = "+/status"

// TopicKind classifies a topic.
type TopicKind int

// Topic kinds
const (
	TopicUnknown TopicKind = iota
	TopicStatus
	TopicEvent
	TopicFunction
	TopicResult
)

// ParseTopic splits a prefix-less topic into device, kind and name
// (event or function name, empty otherwise).
func ParseTopic(topic string) (device string, kind TopicKind, name string) {
	parts := strings.SplitN(topic, "/", 3)
	if len(parts) < 2 || parts[0] == "" {
		return "", TopicUnknown, ""
	}
	device = parts[0]
	switch {
	case len(parts) == 2 && parts[1] == "status":
		kind = TopicStatus
	case len(parts) == 2 && parts[1] == "r":
		kind = TopicResult
	case len(parts) == 3 && parts[1] == "e" && parts[2] != "":
		kind, name = TopicEvent, parts[2]
	case len(parts) == 3 && parts[1] == "f" && parts[2] != "" && !strings.Contains(parts[2], "/"):
		kind, name = TopicFunction, parts[2]
	}
	return
}
