// Package behavior expands named behaviors and quick tasks into motion
// goals and pushes them to a motion.Engine.
package behavior

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"go.viam.com/rdk/logging"

	"robodog/motion"
)

// pusher is the subset of motion.Engine that Library needs, so tests can
// substitute a recording stub without standing up a real engine.
type pusher interface {
	PushGoal(*motion.Goal) string
}

// step is one entry of a loaded behavior's sequence.
type step struct {
	TargetPositions map[string]float64 `json:"target_positions"`
	Duration        float64            `json:"duration"`
}

// behaviorDoc is one named behavior as stored in the library JSON file.
type behaviorDoc struct {
	Sequence []step `json:"sequence"`
}

// quickTasks is the built-in single/short-pose table, so the library is
// useful with no behavior file loaded.
var quickTasks = map[string]map[string]float64{
	"sit": {
		"fl_hip": 30, "fl_knee": 90,
		"fr_hip": 30, "fr_knee": 90,
		"bl_hip": 30, "bl_knee": 90,
		"br_hip": 30, "br_knee": 90,
	},
	"stand": {
		"fl_hip": 0, "fl_knee": 0,
		"fr_hip": 0, "fr_knee": 0,
		"bl_hip": 0, "bl_knee": 0,
		"br_hip": 0, "br_knee": 0,
	},
	"wave_paw": {
		"fl_hip": 30, "fl_knee": 45,
	},
}

// Library holds a loaded set of named sequences plus the built-in
// quick-task table, expanding either into a motion.Goal pushed to the
// engine.
type Library struct {
	engine    pusher
	behaviors map[string]behaviorDoc
	nameAlias map[string]string
	logger    logging.Logger
}

// NewLibrary loads path into a behavior map. File-not-found and malformed
// JSON degrade to an empty library with a logged diagnostic rather than
// aborting the process.
func NewLibrary(engine pusher, path string, nameAlias map[string]string, logger logging.Logger) *Library {
	if logger == nil {
		logger = logging.NewLogger("behavior.library")
	}
	lib := &Library{
		engine:    engine,
		behaviors: map[string]behaviorDoc{},
		nameAlias: nameAlias,
		logger:    logger,
	}

	if path == "" {
		return lib
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warnf("behavior library: %s not found, using default behaviors: %v", path, err)
		return lib
	}
	var docs map[string]behaviorDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		logger.Warnf("behavior library: error parsing %s: %v", path, err)
		return lib
	}
	lib.behaviors = docs
	return lib
}

func (l *Library) remapJoints(positions map[string]float64) map[string]float64 {
	if len(l.nameAlias) == 0 {
		return positions
	}
	mapped := make(map[string]float64, len(positions))
	for name, angle := range positions {
		if alias, ok := l.nameAlias[name]; ok {
			mapped[alias] = angle
			continue
		}
		mapped[name] = angle
	}
	return mapped
}

// ListNames returns every loaded behavior name plus the built-in quick-task
// names.
func (l *Library) ListNames() []string {
	names := make([]string, 0, len(l.behaviors)+len(quickTasks))
	for name := range l.behaviors {
		names = append(names, name)
	}
	for name := range quickTasks {
		names = append(names, name)
	}
	return names
}

// Execute looks up a loaded behavior, remaps joint names via the static
// alias table, and pushes a Sequence goal. Missing or empty behaviors
// return "" with a logged diagnostic instead of an error.
func (l *Library) Execute(name string, priority int) string {
	doc, ok := l.behaviors[name]
	if !ok {
		l.logger.Warnf("behavior library: unknown behavior %q", name)
		return ""
	}
	if len(doc.Sequence) == 0 {
		l.logger.Warnf("behavior library: empty sequence for behavior %q", name)
		return ""
	}

	keyframes := make([]motion.Keyframe, 0, len(doc.Sequence))
	for _, s := range doc.Sequence {
		dur := s.Duration
		if dur == 0 {
			dur = 1.0
		}
		keyframes = append(keyframes, motion.Keyframe{
			DurationS: dur,
			Pose:      l.remapJoints(s.TargetPositions),
		})
	}

	goal := motion.NewSequenceGoal(keyframes, priority)
	goal.GoalID = uuid.NewString()
	return l.engine.PushGoal(goal)
}

// ExecuteQuickTask looks up name first among loaded behaviors (so a
// behavior file can shadow a built-in), then in the built-in quick-task
// table, and pushes a one-keyframe Pose goal.
func (l *Library) ExecuteQuickTask(name string, durationS float64, priority int) string {
	if _, ok := l.behaviors[name]; ok {
		return l.Execute(name, priority)
	}

	pose, ok := quickTasks[name]
	if !ok {
		l.logger.Warnf("behavior library: unknown task %q", name)
		return ""
	}
	if durationS <= 0 {
		durationS = 1.0
	}

	goal := motion.NewPoseGoal(l.remapJoints(pose), durationS, priority)
	goal.GoalID = uuid.NewString()
	return l.engine.PushGoal(goal)
}
