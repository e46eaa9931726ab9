package chat

// EffectKind identifies what an Effect asks the host to do.
type EffectKind int

const (
	// EffectSend delivers an outbound event to the connections named by Scope.
	EffectSend EffectKind = iota
	// EffectJoinGroup adds ConnID to the transport group GroupID.
	EffectJoinGroup
	// EffectPublish publishes Payload on the internal event bus.
	EffectPublish
)

// Scope selects the recipients of an EffectSend.
type Scope int

const (
	// ScopeConnection targets ConnID only.
	ScopeConnection Scope = iota
	// ScopeAll targets every connection.
	ScopeAll
	// ScopeAllExcept targets every connection but ConnID.
	ScopeAllExcept
)

// Effect is one outbound action produced by the Router.
type Effect struct {
	Kind    EffectKind
	Scope   Scope
	ConnID  string
	GroupID string
	Event   string
	Payload any
}

// Transport delivers send and group-join effects to live connections.
// Deliver must keep the order of effects within a batch and across calls.
type Transport interface {
	Deliver(effects []Effect)
}

// Publisher publishes domain events on the internal event bus.
type Publisher interface {
	Publish(payload any) error
}

func sendTo(connID, event string, payload any) Effect {
	return Effect{Kind: EffectSend, Scope: ScopeConnection, ConnID: connID, Event: event, Payload: payload}
}

func sendAll(event string, payload any) Effect {
	return Effect{Kind: EffectSend, Scope: ScopeAll, Event: event, Payload: payload}
}

func sendAllExcept(connID, event string, payload any) Effect {
	return Effect{Kind: EffectSend, Scope: ScopeAllExcept, ConnID: connID, Event: event, Payload: payload}
}

func joinGroup(connID, groupID string) Effect {
	return Effect{Kind: EffectJoinGroup, ConnID: connID, GroupID: groupID}
}

func publish(payload any) Effect {
	return Effect{Kind: EffectPublish, Payload: payload}
}
