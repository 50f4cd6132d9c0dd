package highlight

// Op is a rendering command issued to a sink.
type Op int

const (
	// OpAdd renders a region.
	OpAdd Op = iota
	// OpWithdraw stops rendering a region.
	OpWithdraw
)

// String returns "add" or "withdraw".
func (o Op) String() string {
	if o == OpWithdraw {
		return "withdraw"
	}
	return "add"
}

// Command is one recorded sink call.
type Command struct {
	Op     Op
	Region Region
}

// Recorder is a Sink that keeps every command it receives, in order. Callers
// drain it with Take to forward commands elsewhere.
type Recorder struct {
	commands []Command
}

// Add records an add command.
func (r *Recorder) Add(region Region) {
	r.commands = append(r.commands, Command{Op: OpAdd, Region: region})
}

// Withdraw records a withdraw command.
func (r *Recorder) Withdraw(region Region) {
	r.commands = append(r.commands, Command{Op: OpWithdraw, Region: region})
}

// Take returns the recorded commands and resets the recorder.
func (r *Recorder) Take() []Command {
	out := r.commands
	r.commands = nil
	return out
}

// Len returns the number of pending commands.
func (r *Recorder) Len() int {
	return len(r.commands)
}
