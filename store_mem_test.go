package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestCaseNumbersStepsBySubmissionOrder(t *testing.T) {
	s := newMemStore(false)

	tc := TestCase{Title: "Checkout flow", Priority: "high", Type: "functional"}
	// caller-supplied numbers are garbage on purpose
	steps := []TestStep{
		{StepNumber: 99, Description: "open cart"},
		{StepNumber: 1, Description: "enter payment"},
		{StepNumber: -5, Description: "confirm order"},
	}
	require.NoError(t, s.CreateTestCase(&tc, steps))

	got, err := s.GetTestSteps(tc.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, st := range got {
		assert.Equal(t, i+1, st.StepNumber)
		assert.Equal(t, tc.ID, st.TestCaseID)
	}
	assert.Equal(t, "open cart", got[0].Description)
	assert.Equal(t, "confirm order", got[2].Description)
	assert.Equal(t, 1, tc.Version)
}

func TestUpdateTestCaseStepSemantics(t *testing.T) {
	s := newMemStore(false)
	tc := TestCase{Title: "Search", Priority: "medium", Type: "functional"}
	require.NoError(t, s.CreateTestCase(&tc, []TestStep{
		{Description: "a"}, {Description: "b"}, {Description: "c"},
	}))

	// nil steps: scalars change, steps untouched
	title := "Search v2"
	updated, err := s.UpdateTestCase(tc.ID, TestCasePatch{Title: &title}, nil, 1)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Search v2", updated.Title)
	assert.Equal(t, 2, updated.Version)
	got, err := s.GetTestSteps(tc.ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// replacement with a different size renumbers 1..M
	repl := []TestStep{{StepNumber: 42, Description: "x"}, {Description: "y"}}
	updated, err = s.UpdateTestCase(tc.ID, TestCasePatch{}, &repl, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)
	got, err = s.GetTestSteps(tc.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].StepNumber)
	assert.Equal(t, 2, got[1].StepNumber)

	// empty but non-nil slice wipes the steps
	empty := []TestStep{}
	_, err = s.UpdateTestCase(tc.ID, TestCasePatch{}, &empty, 1)
	require.NoError(t, err)
	got, err = s.GetTestSteps(tc.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateTestCaseSnapshotsPreUpdateState(t *testing.T) {
	s := newMemStore(false)
	tc := TestCase{Title: "Original", Priority: "low", Type: "functional"}
	require.NoError(t, s.CreateTestCase(&tc, []TestStep{{Description: "first"}}))

	title := "Changed"
	_, err := s.UpdateTestCase(tc.ID, TestCasePatch{Title: &title}, nil, 7)
	require.NoError(t, err)

	// creation wrote the version-1 snapshot; the first update reuses it
	versions, err := s.GetTestVersions(tc.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	v1, err := s.GetTestVersion(tc.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, v1)
	assert.Equal(t, "Original", v1.Title)
	steps := v1.VersionSteps()
	require.Len(t, steps, 1)
	assert.Equal(t, "first", steps[0].Description)

	// the second update leaves a version-2 snapshot behind
	again := "Changed again"
	_, err = s.UpdateTestCase(tc.ID, TestCasePatch{Title: &again}, nil, 7)
	require.NoError(t, err)
	v2, err := s.GetTestVersion(tc.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, v2)
	assert.Equal(t, "Changed", v2.Title)

	// lookup is by explicit version number, not position
	missing, err := s.GetTestVersion(tc.ID, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestVersionSnapshotsAreUniquePerNumber(t *testing.T) {
	s := newMemStore(false)
	tc := TestCase{Title: "Checkout", Priority: "high", Type: "functional"}
	require.NoError(t, s.CreateTestCase(&tc, []TestStep{{Description: "pay"}}))

	// a run result mutates the denormalized status without bumping the version
	run := TestRun{Name: "Nightly", StartedBy: 1}
	require.NoError(t, s.CreateTestRun(&run))
	res := TestRunResult{RunID: run.ID, TestCaseID: tc.ID, Status: StatusFailed, ExecutedBy: 1}
	require.NoError(t, s.CreateTestRunResult(&res))

	title := "Checkout v2"
	_, err := s.UpdateTestCase(tc.ID, TestCasePatch{Title: &title}, nil, 1)
	require.NoError(t, err)

	versions, err := s.GetTestVersions(tc.ID)
	require.NoError(t, err)
	seen := map[int]int{}
	for _, v := range versions {
		seen[v.Version]++
	}
	for num, n := range seen {
		assert.Equal(t, 1, n, "version %d must have exactly one snapshot", num)
	}

	// version 1 deterministically resolves to the creation-time state
	v1, err := s.GetTestVersion(tc.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, v1)
	assert.Equal(t, StatusPending, v1.Status)
	assert.Equal(t, "Checkout", v1.Title)
}

func TestDeleteTestCaseRemovesSteps(t *testing.T) {
	s := newMemStore(false)
	tc := TestCase{Title: "Doomed", Priority: "low", Type: "functional"}
	require.NoError(t, s.CreateTestCase(&tc, []TestStep{{Description: "s1"}, {Description: "s2"}}))

	require.NoError(t, s.DeleteTestCase(tc.ID))

	got, err := s.GetTestCase(tc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	steps, err := s.GetTestSteps(tc.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestCreateTestRunResultDenormalizesCaseStatus(t *testing.T) {
	s := newMemStore(false)
	tc := TestCase{Title: "Login works", Priority: "high", Type: "functional"}
	require.NoError(t, s.CreateTestCase(&tc, nil))
	run := TestRun{Name: "Nightly", StartedBy: 1}
	require.NoError(t, s.CreateTestRun(&run))

	res := TestRunResult{RunID: run.ID, TestCaseID: tc.ID, Status: StatusFailed, ExecutedBy: 1}
	require.NoError(t, s.CreateTestRunResult(&res))

	got, err := s.GetTestCase(tc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, res.ExecutedAt, *got.LastRun)

	// last write wins
	res2 := TestRunResult{RunID: run.ID, TestCaseID: tc.ID, Status: StatusPassed, ExecutedBy: 1}
	require.NoError(t, s.CreateTestRunResult(&res2))
	got, err = s.GetTestCase(tc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, got.Status)
}

func TestCompleteTestRunComputesDuration(t *testing.T) {
	s := newMemStore(false)
	run := TestRun{Name: "Timed", StartedBy: 1, StartedAt: time.Now().UTC().Add(-3 * time.Second)}
	require.NoError(t, s.CreateTestRun(&run))

	done, err := s.CompleteTestRun(run.ID)
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, RunStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.Duration)
	assert.GreaterOrEqual(t, *done.Duration, int64(3))
	assert.Less(t, *done.Duration, int64(10))

	// absent run -> nil, nil
	missing, err := s.CompleteTestRun(9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateFolderAssignmentIsANoOp(t *testing.T) {
	s := newMemStore(false)
	f := Folder{Name: "Smoke"}
	require.NoError(t, s.CreateFolder(&f))
	tc := TestCase{Title: "Ping", Priority: "low", Type: "functional"}
	require.NoError(t, s.CreateTestCase(&tc, nil))

	first, err := s.AssignTestCaseToFolder(f.ID, tc.ID)
	require.NoError(t, err)
	second, err := s.AssignTestCaseToFolder(f.ID, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	counts, err := s.CountFolderCases()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[f.ID])
}

func TestSeededFixtures(t *testing.T) {
	s := newMemStore(true)
	folders, err := s.ListFolders()
	require.NoError(t, err)
	assert.Len(t, folders, 3)
	cases, err := s.ListTestCases(TestCaseFilter{})
	require.NoError(t, err)
	assert.Len(t, cases, 3)

	// and the empty constructor really is empty
	empty := newMemStore(false)
	folders, err = empty.ListFolders()
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestListTestCasesFiltersCombineWithAND(t *testing.T) {
	s := newMemStore(false)
	mk := func(title, status, prio, typ string) {
		tc := TestCase{Title: title, Status: status, Priority: prio, Type: typ}
		require.NoError(t, s.CreateTestCase(&tc, nil))
	}
	mk("alpha login", StatusPassed, "high", "functional")
	mk("beta login", StatusFailed, "high", "functional")
	mk("gamma perf", StatusPassed, "low", "performance")

	out, err := s.ListTestCases(TestCaseFilter{Status: StatusPassed, Priority: "high"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "alpha login", out[0].Title)

	out, err = s.ListTestCases(TestCaseFilter{Search: "LOGIN"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestRunStatsAggregates(t *testing.T) {
	s := newMemStore(false)
	r1 := TestRun{Name: "a", StartedAt: time.Now().UTC().Add(-10 * time.Second)}
	require.NoError(t, s.CreateTestRun(&r1))
	_, err := s.CompleteTestRun(r1.ID)
	require.NoError(t, err)
	r2 := TestRun{Name: "b"}
	require.NoError(t, s.CreateTestRun(&r2))

	stats, err := s.GetTestRunStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Running)
	require.NotNil(t, stats.AverageDuration)
	assert.GreaterOrEqual(t, *stats.AverageDuration, float64(10))
}
