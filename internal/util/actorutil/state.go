package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorWithStates is a Behavior that remembers the name of the active state.
type ActorWithStates struct {
	Behavior actor.Behavior
	names    []string
}

type ActorState interface {
	Name() string
	Receive(actor.Context)
}

// NamedState adapts a receive function into an ActorState.
type NamedState struct {
	StateName string
	Fn        actor.ReceiveFunc
}

func (s NamedState) Name() string {
	return s.StateName
}

func (s NamedState) Receive(ctx actor.Context) {
	s.Fn(ctx)
}

func NewActorWithStates() ActorWithStates {
	return ActorWithStates{
		Behavior: actor.NewBehavior(),
	}
}

func (s *ActorWithStates) Receive(ctx actor.Context) {
	s.Behavior.Receive(ctx)
}

func (s *ActorWithStates) Become(state ActorState) {
	s.Behavior.Become(state.Receive)
	s.names = []string{state.Name()}
}

func (s *ActorWithStates) BecomeStacked(state ActorState) {
	s.Behavior.BecomeStacked(state.Receive)
	s.names = append(s.names, state.Name())
}

func (s *ActorWithStates) UnbecomeStacked() {
	s.Behavior.UnbecomeStacked()
	if len(s.names) > 0 {
		s.names = s.names[:len(s.names)-1]
	}
}

func (s *ActorWithStates) StateName() string {
	if len(s.names) == 0 {
		return ""
	}
	return s.names[len(s.names)-1]
}
