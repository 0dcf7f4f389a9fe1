package domain

import "regexp"

// Command enumerates the operations a caller may invoke on the dispatcher.
// The string value is the wire name used by transports.
type Command string

const (
	CommandContainerOpen      Command = "containerOpen"
	CommandGet                Command = "get"
	CommandGetContainerString Command = "getContainerString"
	CommandGetContainerBool   Command = "getContainerBoolean"
	CommandGetContainerLong   Command = "getContainerLong"
	CommandGetContainerDouble Command = "getContainerDouble"
	CommandSet                Command = "set"
	CommandCustomDimension    Command = "customDimension"
	CommandCustomMetric       Command = "customMetric"
	CommandDataLayerPush      Command = "dataLayerPush"
	CommandGetDataLayer       Command = "getDatalayer"
	CommandSetTrackingID      Command = "setTrackingId"
	CommandSetLogLevel        Command = "setLogLevel"
	CommandSend               Command = "send"
	CommandSendEvent          Command = "sendEvent"
	CommandSendAppView        Command = "sendAppView"
	CommandSendException      Command = "sendException"
	CommandClose              Command = "close"
)

// Commands lists every routable command in a stable order.
var Commands = []Command{
	CommandContainerOpen,
	CommandGet,
	CommandGetContainerString,
	CommandGetContainerBool,
	CommandGetContainerLong,
	CommandGetContainerDouble,
	CommandSet,
	CommandCustomDimension,
	CommandCustomMetric,
	CommandDataLayerPush,
	CommandGetDataLayer,
	CommandSetTrackingID,
	CommandSetLogLevel,
	CommandSend,
	CommandSendEvent,
	CommandSendAppView,
	CommandSendException,
	CommandClose,
}

// ParseCommand resolves a wire name to a Command.
func ParseCommand(name string) (Command, error) {
	for _, c := range Commands {
		if string(c) == name {
			return c, nil
		}
	}
	return "", NewError(KindUnknownCommand, "unknown command %q", name)
}

// Invocation is a single inbound call: a command, its positional arguments
// and the caller-supplied callback identifier used to route the answer.
type Invocation struct {
	CallbackID string  `json:"callbackId"`
	Command    Command `json:"command"`
	Args       []any   `json:"args"`
}

// ContainerIDPattern is the shape of a tag manager container id.
var ContainerIDPattern = regexp.MustCompile(`^GTM-[A-Z0-9]+$`)
