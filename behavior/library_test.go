package behavior

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"robodog/motion"
)

type recordingEngine struct {
	pushed []*motion.Goal
}

func (e *recordingEngine) PushGoal(g *motion.Goal) string {
	if g.GoalID == "" {
		g.GoalID = "stub-id"
	}
	e.pushed = append(e.pushed, g)
	return g.GoalID
}

func writeBehaviorFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "behaviors.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestExecuteQuickTaskBuiltins(t *testing.T) {
	eng := &recordingEngine{}
	lib := NewLibrary(eng, "", nil, nil)

	id := lib.ExecuteQuickTask("sit", 1.0, 5)
	require.NotEmpty(t, id)
	require.Len(t, eng.pushed, 1)
	require.Equal(t, motion.ActionPose, eng.pushed[0].Action)
	require.Equal(t, 30.0, eng.pushed[0].Poses[0].Pose["fl_hip"])
}

func TestExecuteQuickTaskUnknownReturnsEmpty(t *testing.T) {
	eng := &recordingEngine{}
	lib := NewLibrary(eng, "", nil, nil)

	id := lib.ExecuteQuickTask("backflip", 1.0, 5)
	require.Empty(t, id)
	require.Empty(t, eng.pushed)
}

func TestListNamesIncludesBuiltinsAndLoaded(t *testing.T) {
	path := writeBehaviorFile(t, `{"patrol": {"sequence": [{"target_positions": {"fl_hip": 10}, "duration": 2}]}}`)
	eng := &recordingEngine{}
	lib := NewLibrary(eng, path, nil, nil)

	names := lib.ListNames()
	require.Contains(t, names, "patrol")
	require.Contains(t, names, "sit")
	require.Contains(t, names, "stand")
	require.Contains(t, names, "wave_paw")
}

func TestExecuteLoadedBehaviorSequence(t *testing.T) {
	path := writeBehaviorFile(t, `{
		"patrol": {"sequence": [
			{"target_positions": {"fl_hip": 10}, "duration": 2},
			{"target_positions": {"fl_hip": 20}}
		]}
	}`)
	eng := &recordingEngine{}
	lib := NewLibrary(eng, path, nil, nil)

	id := lib.Execute("patrol", 7)
	require.NotEmpty(t, id)
	require.Len(t, eng.pushed, 1)

	goal := eng.pushed[0]
	require.Equal(t, motion.ActionSequence, goal.Action)
	require.Equal(t, 7, goal.Priority)
	require.Len(t, goal.Poses, 2)
	require.Equal(t, 2.0, goal.Poses[0].DurationS)
	require.Equal(t, 1.0, goal.Poses[1].DurationS) // missing duration defaults to 1.0
}

func TestExecuteUnknownBehaviorReturnsEmpty(t *testing.T) {
	eng := &recordingEngine{}
	lib := NewLibrary(eng, "", nil, nil)

	id := lib.Execute("does-not-exist", 5)
	require.Empty(t, id)
	require.Empty(t, eng.pushed)
}

func TestExecuteEmptySequenceReturnsEmpty(t *testing.T) {
	path := writeBehaviorFile(t, `{"noop": {"sequence": []}}`)
	eng := &recordingEngine{}
	lib := NewLibrary(eng, path, nil, nil)

	id := lib.Execute("noop", 5)
	require.Empty(t, id)
}

func TestNameAliasRemapsJoints(t *testing.T) {
	path := writeBehaviorFile(t, `{"wave": {"sequence": [{"target_positions": {"front_left_hip": 15}, "duration": 1}]}}`)
	eng := &recordingEngine{}
	alias := map[string]string{"front_left_hip": "fl_hip"}
	lib := NewLibrary(eng, path, alias, nil)

	lib.Execute("wave", 5)
	require.Len(t, eng.pushed, 1)
	pose := eng.pushed[0].Poses[0].Pose
	_, hasOld := pose["front_left_hip"]
	require.False(t, hasOld)
	require.Equal(t, 15.0, pose["fl_hip"])
}

func TestMissingBehaviorFileDegradesGracefully(t *testing.T) {
	eng := &recordingEngine{}
	lib := NewLibrary(eng, "/nonexistent/path/behaviors.json", nil, nil)
	require.Empty(t, lib.behaviors)
	require.Contains(t, lib.ListNames(), "stand")
}

func TestMalformedBehaviorFileDegradesGracefully(t *testing.T) {
	path := writeBehaviorFile(t, `{not valid json`)
	eng := &recordingEngine{}
	lib := NewLibrary(eng, path, nil, nil)
	require.Empty(t, lib.behaviors)
}
