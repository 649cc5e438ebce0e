package sensor

import (
	"errors"
	"fmt"

	"dendrite/internal/model"
)

var (
	// ErrSenseNotImplemented marks a sensor type that never supplied its
	// mandatory sensing operation. It aborts the sync cycle.
	ErrSenseNotImplemented = errors.New("sense is not implemented")

	ErrNoSender = errors.New("no sender bound")
)

// Sender delivers one batch to one target address. Delivery is asynchronous
// and fire-and-forget: unknown or saturated targets are the transport's
// problem, never the sensor's.
type Sender interface {
	Send(target string, batch model.SignalBatch)
}

// Behavior is the sensor actor contract. Every operation is independently
// overridable; a concrete type embeds Core to inherit defaults and must, in
// practice, supply at least Sense.
type Behavior interface {
	// BeforeSync lets the concrete type adjust its own extension fields
	// before sensing. The default is the identity transform.
	BeforeSync(state State) (State, error)
	// Sense produces the raw impulse for one cycle. Metadata interpretation
	// belongs entirely to the concrete type.
	Sense(state State, meta any) ([]float64, error)
	// Sync orchestrates one cycle: BeforeSync, Sense, Forward, in order.
	Sync(state State, meta any) (State, error)
	// Forward formats the impulse and broadcasts the batch to every target
	// in state.Outs. State is returned unchanged.
	Forward(state State, impulse []float64) (State, error)
	// FormatImpulse maps the impulse into named envelopes.
	FormatImpulse(state State, impulse []float64) []model.Signal
}

// Binder is the optional capability the runtime uses to hand a Core-backed
// behavior its dispatch target and outbound transport. Behaviors that
// replace Sync wholesale may not need it.
type Binder interface {
	Bind(self Behavior, sender Sender)
}

// Core provides the default implementations of the Behavior contract.
// Concrete sensor types embed it and override individual operations; the
// default Sync dispatches every step through the bound outer behavior so a
// single override takes effect without replacing the rest.
type Core struct {
	self   Behavior
	sender Sender
}

func (c *Core) Bind(self Behavior, sender Sender) {
	c.self = self
	c.sender = sender
}

func (c *Core) dispatch() Behavior {
	if c.self != nil {
		return c.self
	}
	return c
}

// BeforeSync is the identity transform by default.
func (c *Core) BeforeSync(state State) (State, error) {
	return state, nil
}

// Sense is a placeholder that forces concrete types to override it.
func (c *Core) Sense(state State, _ any) ([]float64, error) {
	return nil, fmt.Errorf("%w: sensor %s", ErrSenseNotImplemented, state.ID)
}

// Sync runs one cycle: pre-sync hook, sense, forward. A failure in any step
// aborts the cycle and propagates to the actor's failure boundary.
func (c *Core) Sync(state State, meta any) (State, error) {
	self := c.dispatch()

	next, err := self.BeforeSync(state)
	if err != nil {
		return state, fmt.Errorf("before sync %s: %w", state.ID, err)
	}

	impulse, err := self.Sense(next, meta)
	if err != nil {
		return next, fmt.Errorf("sync %s: %w", next.ID, err)
	}

	return self.Forward(next, impulse)
}

// FormatImpulse names each impulse element "{id}_{i}" with a 1-based index.
// Envelopes accumulate by prepending, so the emitted order is the reverse
// of the impulse's index order; downstream consumers rely on that order.
func (c *Core) FormatImpulse(state State, impulse []float64) []model.Signal {
	var acc []model.Signal
	for i, value := range impulse {
		envelope := model.Signal{
			Name:  fmt.Sprintf("%s_%d", state.ID, i+1),
			Value: value,
		}
		acc = append([]model.Signal{envelope}, acc...)
	}
	return acc
}

// Forward sends the identical formatted batch to every target in
// state.Outs, tagged with the sender id and the raw pre-format impulse.
// Zero targets is a valid no-op.
func (c *Core) Forward(state State, impulse []float64) (State, error) {
	if len(state.Outs) == 0 {
		return state, nil
	}
	if c.sender == nil {
		return state, fmt.Errorf("%w: sensor %s", ErrNoSender, state.ID)
	}

	batch := model.SignalBatch{
		SenderID: state.ID,
		Signals:  c.dispatch().FormatImpulse(state, impulse),
		Provenance: []model.Provenance{{
			SenderID: state.ID,
			Values:   append([]float64(nil), impulse...),
		}},
	}
	for _, target := range state.Outs {
		c.sender.Send(target, batch)
	}
	return state, nil
}
