package motion

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.viam.com/rdk/logging"

	"robodog/roboerr"
	"robodog/servo"
)

const emptyQueuePoll = 50 * time.Millisecond

// FeedbackSink receives FeedbackEvent values on the engine's worker
// goroutine. A panicking sink is recovered and logged, never propagated.
type FeedbackSink func(FeedbackEvent)

// Engine runs one background worker draining a priority queue,
// interpolating keyframe sequences onto a servo.Controller.
type Engine struct {
	ctrl   *servo.Controller
	rateHz float64
	sink   FeedbackSink
	logger logging.Logger

	queue *priorityQueue

	activeMu sync.Mutex
	active   *Goal

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  atomic.Bool
}

// NewEngine constructs an Engine bound to ctrl. rateHz <= 0 defaults to 50.
// sink may be nil (feedback is then discarded).
func NewEngine(ctrl *servo.Controller, rateHz float64, sink FeedbackSink, logger logging.Logger) *Engine {
	if rateHz <= 0 {
		rateHz = 50
	}
	if logger == nil {
		logger = logging.NewLogger("motion.engine")
	}
	return &Engine{
		ctrl:   ctrl,
		rateHz: rateHz,
		sink:   sink,
		logger: logger,
		queue:  newPriorityQueue(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the worker goroutine. Calling Start twice is a no-op.
func (e *Engine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	go e.run()
}

// PushGoal assigns a goal id if absent and enqueues the goal. The goal
// becomes eligible the moment the worker is free; it does not preempt the
// active goal regardless of relative priority — scheduling is cooperative
// between goals, only CancelGoal interrupts an active one.
func (e *Engine) PushGoal(g *Goal) string {
	if g.GoalID == "" {
		g.GoalID = uuid.NewString()
	}
	e.queue.push(g)
	return g.GoalID
}

// CancelGoal sets the active goal's cancel flag if it matches, else removes
// a matching pending goal. Returns false if the id is in neither place.
func (e *Engine) CancelGoal(goalID string) bool {
	e.activeMu.Lock()
	if e.active != nil && e.active.GoalID == goalID {
		e.active.cancel.Store(true)
		e.activeMu.Unlock()
		return true
	}
	e.activeMu.Unlock()
	return e.queue.remove(goalID)
}

// Stop signals the worker to exit after its current goal and waits for it,
// bounded by a short timeout. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	select {
	case <-e.doneCh:
	case <-time.After(2 * time.Second):
		e.logger.Warn("motion engine stop timed out waiting for worker")
	}
}

func (e *Engine) run() {
	defer close(e.doneCh)
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		g := e.queue.pop()
		if g == nil {
			time.Sleep(emptyQueuePoll)
			continue
		}

		g.cancel.Store(false)
		e.activeMu.Lock()
		e.active = g
		e.activeMu.Unlock()

		e.runGoal(g)

		e.activeMu.Lock()
		e.active = nil
		e.activeMu.Unlock()
	}
}

// runGoal dispatches by action. Pose and Sequence share the same
// interpolator — a Pose is just a single-keyframe Sequence.
func (e *Engine) runGoal(g *Goal) {
	switch g.Action {
	case ActionPose, ActionSequence:
		if len(g.Poses) == 0 {
			e.emit(g, StateFailed, 0, e.ctrl.GetCurrentPose(), "goal has no keyframes")
			return
		}
		e.runSequence(g)
	default:
		err := &roboerr.UnsupportedAction{Action: string(g.Action)}
		e.emit(g, StateFailed, 0, e.ctrl.GetCurrentPose(), err.Error())
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// runSequence executes g.Poses in order at the engine's control rate,
// checking the cancel flag and an optional wall-clock timeout at the start
// of every step.
func (e *Engine) runSequence(g *Goal) {
	start := time.Now()
	current := e.ctrl.GetCurrentPose()
	k := len(g.Poses)
	feedbackEvery := int(math.Max(1, e.rateHz/5))
	tickDuration := time.Duration(float64(time.Second) / e.rateHz)

	for idx, kf := range g.Poses {
		steps := int(math.Max(1, math.Round(e.rateHz*math.Max(0.001, kf.DurationS))))

		for step := 1; step <= steps; step++ {
			if g.cancel.Load() {
				e.emit(g, StatePreempted, 0.0, e.ctrl.GetCurrentPose(), "cancelled")
				return
			}
			if g.TimeoutS > 0 && time.Since(start).Seconds() > g.TimeoutS {
				progress := (float64(idx) + float64(step)/float64(steps)) / float64(k)
				e.emit(g, StateAborted, progress, e.ctrl.GetCurrentPose(), "timeout")
				return
			}

			t := float64(step) / float64(steps)
			if len(kf.Pose) > 0 {
				interp := make(map[string]float64, len(kf.Pose))
				for joint, target := range kf.Pose {
					base, ok := current[joint]
					if !ok {
						if v, ok2 := e.ctrl.GetCurrentValue(joint); ok2 {
							base = v
						}
					}
					interp[joint] = lerp(base, target, t)
				}
				if err := e.ctrl.SetPose(interp); err != nil {
					progress := (float64(idx) + t) / float64(k)
					e.emit(g, StateFailed, progress, e.ctrl.GetCurrentPose(), err.Error())
					return
				}
			}

			if step%feedbackEvery == 0 {
				progress := (float64(idx) + t) / float64(k)
				e.emit(g, StateActive, progress, e.ctrl.GetCurrentPose(), "")
			}

			time.Sleep(tickDuration)
		}

		for joint, v := range kf.Pose {
			current[joint] = v
		}
	}

	e.emit(g, StateSucceeded, 1.0, e.ctrl.GetCurrentPose(), "")
}

// emit invokes the feedback sink, recovering any panic so a misbehaving
// sink can never take down the worker.
func (e *Engine) emit(g *Goal, status GoalState, progress float64, pose map[string]float64, message string) {
	if e.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warnf("feedback sink panicked: %v", r)
		}
	}()
	e.sink(FeedbackEvent{
		GoalID:      g.GoalID,
		Status:      status,
		Progress:    progress,
		CurrentPose: pose,
		Message:     message,
		Timestamp:   time.Now(),
	})
}
