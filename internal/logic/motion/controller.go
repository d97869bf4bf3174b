package motion

// Mover is whatever the animation pans: the geometry state in practice.
type Mover interface {
	MoveX(dx float64)
	MoveY(dy float64)
}

// Token is the shared running flag of one animation. Manual input cancels
// it and the next tick sees the animation as finished.
type Token struct {
	running bool
}

// Cancel clears the running flag.
func (t *Token) Cancel() {
	if t != nil {
		t.running = false
	}
}

// Active reports whether the animation may keep running.
func (t *Token) Active() bool {
	return t != nil && t.running
}

// Task is one pan/tilt animation: both axes advance on the same tick, so
// a diagonal move ends when the longer axis does.
type Task struct {
	Pan  Axis
	Tilt Axis
}

// NewTask builds a task from per-axis distances and directions.
func NewTask(distX float64, dirX int, distY float64, dirY int) (*Task, error) {
	pan, err := NewAxis(distX, dirX)
	if err != nil {
		return nil, err
	}
	tilt, err := NewAxis(distY, dirY)
	if err != nil {
		return nil, err
	}
	return &Task{Pan: pan, Tilt: tilt}, nil
}

// Done reports whether both axes reached their target.
func (t *Task) Done() bool {
	return t.Pan.Done() && t.Tilt.Done()
}

// Phase is the scheduler state. Completed and Cancelled are idle phases
// that remember how the last animation ended.
type Phase int

const (
	Idle Phase = iota
	Running
	Completed
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Controller runs at most one Task at a time against a Mover. It has no
// clock of its own: the owner calls Tick at a fixed cadence.
type Controller struct {
	accel float64
	task  *Task
	token *Token
	phase Phase
}

// NewController creates an idle controller. accel <= 0 selects StepAccel.
func NewController(accel float64) *Controller {
	if accel <= 0 {
		accel = StepAccel
	}
	return &Controller{accel: accel}
}

// Start cancels any running animation and makes t the active one.
func (c *Controller) Start(t *Task) *Token {
	if c.phase == Running {
		c.token.Cancel()
	}
	c.task = t
	c.token = &Token{running: true}
	c.phase = Running
	return c.token
}

// Cancel stops the running animation, leaving the view where the last tick put it.
func (c *Controller) Cancel() {
	c.token.Cancel()
}

// Running reports whether an animation is in progress.
func (c *Controller) Running() bool {
	return c.phase == Running && c.token.Active()
}

// Phase returns the current state.
func (c *Controller) Phase() Phase {
	if c.phase == Running && !c.token.Active() {
		return Cancelled
	}
	return c.phase
}

// Tick advances the animation by one step and reports whether it still runs.
// A cancelled token ends the task before any movement is applied.
func (c *Controller) Tick(m Mover) bool {
	if c.phase != Running {
		return false
	}
	if !c.token.Active() {
		c.finish(Cancelled)
		return false
	}

	if dx := c.task.Pan.Step(c.accel); dx != 0 {
		m.MoveX(dx)
	}
	if dy := c.task.Tilt.Step(c.accel); dy != 0 {
		m.MoveY(dy)
	}

	if c.task.Done() {
		c.token.Cancel()
		c.finish(Completed)
		return false
	}
	return true
}

func (c *Controller) finish(p Phase) {
	c.phase = p
	c.task = nil
}

// Task returns the active task, or nil.
func (c *Controller) Task() *Task {
	return c.task
}
