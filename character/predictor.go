package character

// Predictor runs a controller ahead of the server. It keeps every input the server has
// not acknowledged yet, so that an authoritative state can be rebased onto them.
type Predictor struct {
	Controller *Controller
	Dt         float64

	pending []Input
}

func NewPredictor(controller *Controller, dt float64) *Predictor {
	return &Predictor{Controller: controller, Dt: dt}
}

// Apply steps the controller with input and keeps it until acknowledged.
func (p *Predictor) Apply(input Input) State {
	p.pending = append(p.pending, input)
	return p.Controller.Step(input, p.Dt)
}

// Pending returns the number of inputs not acknowledged by the server.
func (p *Predictor) Pending() int {
	return len(p.pending)
}

// Reconcile drops the inputs up to ackSeq, restores the authoritative state the server
// reached after that input and replays the remaining ones on top of it.
func (p *Predictor) Reconcile(ackSeq uint64, authoritative State) State {
	n := 0
	for _, input := range p.pending {
		if input.Seq > ackSeq {
			p.pending[n] = input
			n++
		}
	}
	p.pending = p.pending[:n]

	return Replay(p.Controller, authoritative, p.pending, p.Dt)
}

// Replay restores state on the controller and steps it with inputs in order. The server
// runs the same function on the inputs received from a client.
func Replay(controller *Controller, state State, inputs []Input, dt float64) State {
	controller.Restore(state)
	for _, input := range inputs {
		state = controller.Step(input, dt)
	}
	return state
}
