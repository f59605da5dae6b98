package main

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// memStore is the map-backed Store used by tests and local demos. It must
// behave identically to gormStore from a caller's point of view; every
// operation is atomic under a single mutex.
type memStore struct {
	mu sync.Mutex

	users       map[int64]*User
	folders     map[int64]*Folder
	assignments map[int64]*FolderAssignment
	testCases   map[int64]*TestCase
	steps       map[int64]*TestStep
	versions    map[int64]*TestVersion
	runs        map[int64]*TestRun
	results     map[int64]*TestRunResult
	bugs        map[int64]*Bug
	whiteboards map[int64]*Whiteboard
	aiCases     map[int64]*AITestCase
	activity    []*ActivityLog

	nextID map[string]int64
}

// newMemStore builds an empty in-memory store. With seed=true it loads the
// bootstrap fixtures (three folders, three test cases); production wiring
// never passes seed=true.
func newMemStore(seed bool) *memStore {
	s := &memStore{
		users:       map[int64]*User{},
		folders:     map[int64]*Folder{},
		assignments: map[int64]*FolderAssignment{},
		testCases:   map[int64]*TestCase{},
		steps:       map[int64]*TestStep{},
		versions:    map[int64]*TestVersion{},
		runs:        map[int64]*TestRun{},
		results:     map[int64]*TestRunResult{},
		bugs:        map[int64]*Bug{},
		whiteboards: map[int64]*Whiteboard{},
		aiCases:     map[int64]*AITestCase{},
		nextID:      map[string]int64{},
	}
	if seed {
		s.seedFixtures()
	}
	return s
}

func (s *memStore) id(kind string) int64 {
	s.nextID[kind]++
	return s.nextID[kind]
}

func (s *memStore) seedFixtures() {
	folders := []Folder{
		{Name: "Smoke", Description: "Fast pre-release checks"},
		{Name: "Regression", Description: "Full regression suite"},
		{Name: "Exploratory", Description: "Unscripted sessions and notes"},
	}
	for i := range folders {
		_ = s.CreateFolder(&folders[i])
	}
	cases := []struct {
		tc    TestCase
		steps []TestStep
	}{
		{
			tc: TestCase{Title: "Login with valid credentials", Priority: "high", Type: "functional",
				Status: StatusPending, ExpectedResult: "User lands on the dashboard"},
			steps: []TestStep{
				{Description: "Open the login page", ExpectedResult: "Form is shown"},
				{Description: "Submit valid credentials", ExpectedResult: "Redirect to dashboard"},
			},
		},
		{
			tc: TestCase{Title: "Password reset email", Priority: "medium", Type: "functional",
				Status: StatusPending, ExpectedResult: "Reset email arrives within a minute"},
			steps: []TestStep{
				{Description: "Request a password reset", ExpectedResult: "Confirmation banner"},
			},
		},
		{
			tc: TestCase{Title: "Dashboard loads under 2s", Priority: "low", Type: "performance",
				Status: StatusPending, ExpectedResult: "P95 load time below two seconds"},
		},
	}
	for i := range cases {
		_ = s.CreateTestCase(&cases[i].tc, cases[i].steps)
	}
}

/* ===================== Users ====================== */

func (s *memStore) GetUser(id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) GetUserByUsername(username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetUserByEmail(email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListUsers() ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) CreateUser(u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id("user")
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) UpdateUser(u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) CountUsers() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

/* ===================== Folders ====================== */

func (s *memStore) GetFolder(id int64) (*Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.folders[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListFolders() ([]Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Folder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) CreateFolder(f *Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.id("folder")
	f.CreatedAt = time.Now().UTC()
	cp := *f
	s.folders[f.ID] = &cp
	return nil
}

func (s *memStore) UpdateFolder(f *Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.folders[f.ID] = &cp
	return nil
}

func (s *memStore) DeleteFolder(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for aid, a := range s.assignments {
		if a.FolderID == id {
			delete(s.assignments, aid)
		}
	}
	delete(s.folders, id)
	return nil
}

func (s *memStore) CountFolderCases() (map[int64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int64]int64{}
	for _, a := range s.assignments {
		out[a.FolderID]++
	}
	return out, nil
}

/* ===================== Folder assignments ====================== */

func (s *memStore) AssignTestCaseToFolder(folderID, testCaseID int64) (*FolderAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.FolderID == folderID && a.TestCaseID == testCaseID {
			cp := *a
			return &cp, nil
		}
	}
	fa := &FolderAssignment{
		ID:         s.id("assignment"),
		FolderID:   folderID,
		TestCaseID: testCaseID,
		AssignedAt: time.Now().UTC(),
	}
	s.assignments[fa.ID] = fa
	cp := *fa
	return &cp, nil
}

func (s *memStore) RemoveTestCaseFromFolder(folderID, testCaseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for aid, a := range s.assignments {
		if a.FolderID == folderID && a.TestCaseID == testCaseID {
			delete(s.assignments, aid)
		}
	}
	return nil
}

func (s *memStore) GetFolderTestCases(folderID int64) ([]TestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TestCase
	for _, a := range s.assignments {
		if a.FolderID != folderID {
			continue
		}
		if tc, ok := s.testCases[a.TestCaseID]; ok {
			out = append(out, *tc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetTestCaseFolders(testCaseID int64) ([]Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Folder
	for _, a := range s.assignments {
		if a.TestCaseID != testCaseID {
			continue
		}
		if f, ok := s.folders[a.FolderID]; ok {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

/* ===================== Test cases ====================== */

func (s *memStore) GetTestCase(id int64) (*TestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tc, ok := s.testCases[id]; ok {
		cp := *tc
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListTestCases(f TestCaseFilter) ([]TestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TestCase
	for _, tc := range s.testCases {
		if f.Status != "" && tc.Status != f.Status {
			continue
		}
		if f.Priority != "" && tc.Priority != f.Priority {
			continue
		}
		if f.Type != "" && tc.Type != f.Type {
			continue
		}
		if f.AssignedTo != nil && (tc.AssignedTo == nil || *tc.AssignedTo != *f.AssignedTo) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(tc.Title), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) CreateTestCase(tc *TestCase, steps []TestStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc.ID = s.id("testcase")
	if tc.Version == 0 {
		tc.Version = 1
	}
	if tc.Status == "" {
		tc.Status = StatusPending
	}
	now := time.Now().UTC()
	tc.CreatedAt = now
	tc.UpdatedAt = now

	renumbered := renumberSteps(tc.ID, steps)
	for i := range renumbered {
		renumbered[i].ID = s.id("step")
		cp := renumbered[i]
		s.steps[cp.ID] = &cp
	}
	tc.Steps = renumbered

	row := *tc
	row.Steps = nil
	s.testCases[tc.ID] = &row

	v := snapshotVersion(tc, renumbered, tc.CreatedBy)
	v.ID = s.id("version")
	v.CreatedAt = now
	s.versions[v.ID] = &v
	return nil
}

func (s *memStore) UpdateTestCase(id int64, patch TestCasePatch, steps *[]TestStep, actorID int64) (*TestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc, ok := s.testCases[id]
	if !ok {
		return nil, nil
	}
	current := s.stepsForLocked(id)

	// one snapshot per version number; creation already wrote version 1
	if !s.versionExistsLocked(id, tc.Version) {
		v := snapshotVersion(tc, current, actorID)
		v.ID = s.id("version")
		v.CreatedAt = time.Now().UTC()
		s.versions[v.ID] = &v
	}

	applyTestCasePatch(tc, patch)
	tc.Version++
	tc.UpdatedAt = time.Now().UTC()

	if steps != nil {
		for sid, st := range s.steps {
			if st.TestCaseID == id {
				delete(s.steps, sid)
			}
		}
		renumbered := renumberSteps(id, *steps)
		for i := range renumbered {
			renumbered[i].ID = s.id("step")
			cp := renumbered[i]
			s.steps[cp.ID] = &cp
		}
		current = renumbered
	}

	cp := *tc
	cp.Steps = current
	return &cp, nil
}

func (s *memStore) DeleteTestCase(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, st := range s.steps {
		if st.TestCaseID == id {
			delete(s.steps, sid)
		}
	}
	for aid, a := range s.assignments {
		if a.TestCaseID == id {
			delete(s.assignments, aid)
		}
	}
	delete(s.testCases, id)
	return nil
}

func (s *memStore) versionExistsLocked(testCaseID int64, version int) bool {
	for _, v := range s.versions {
		if v.TestCaseID == testCaseID && v.Version == version {
			return true
		}
	}
	return false
}

func (s *memStore) stepsForLocked(testCaseID int64) []TestStep {
	var out []TestStep
	for _, st := range s.steps {
		if st.TestCaseID == testCaseID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepNumber < out[j].StepNumber })
	return out
}

func (s *memStore) GetTestSteps(testCaseID int64) ([]TestStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepsForLocked(testCaseID), nil
}

/* ===================== Versions ====================== */

func (s *memStore) GetTestVersions(testCaseID int64) ([]TestVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TestVersion
	for _, v := range s.versions {
		if v.TestCaseID == testCaseID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *memStore) GetTestVersion(testCaseID int64, version int) (*TestVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.TestCaseID == testCaseID && v.Version == version {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

/* ===================== Test runs ====================== */

func (s *memStore) GetTestRun(id int64) (*TestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListTestRuns() ([]TestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TestRun, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (s *memStore) CreateTestRun(r *TestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id("run")
	if r.Status == "" {
		r.Status = RunStatusRunning
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *memStore) UpdateTestRun(r *TestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *memStore) DeleteTestRun(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for rid, res := range s.results {
		if res.RunID == id {
			delete(s.results, rid)
		}
	}
	delete(s.runs, id)
	return nil
}

func (s *memStore) CompleteTestRun(id int64) (*TestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	now := time.Now().UTC()
	duration := int64(now.Sub(r.StartedAt).Seconds())
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
	r.Duration = &duration
	cp := *r
	return &cp, nil
}

func (s *memStore) CreateTestRunResult(res *TestRunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res.ID = s.id("result")
	if res.ExecutedAt.IsZero() {
		res.ExecutedAt = time.Now().UTC()
	}
	cp := *res
	s.results[res.ID] = &cp
	if tc, ok := s.testCases[res.TestCaseID]; ok {
		tc.Status = res.Status
		at := res.ExecutedAt
		tc.LastRun = &at
	}
	return nil
}

func (s *memStore) GetTestRunResults(runID int64) ([]TestRunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TestRunResult
	for _, res := range s.results {
		if res.RunID == runID {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

/* ===================== Bugs ====================== */

func (s *memStore) GetBug(id int64) (*Bug, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bugs[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListBugs(status string) ([]Bug, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Bug
	for _, b := range s.bugs {
		if status != "" && b.Status != status {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) CreateBug(b *Bug) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id("bug")
	now := time.Now().UTC()
	b.ReportedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = BugStatusOpen
	}
	cp := *b
	s.bugs[b.ID] = &cp
	return nil
}

func (s *memStore) UpdateBug(b *Bug) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	s.bugs[b.ID] = &cp
	return nil
}

func (s *memStore) DeleteBug(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bugs, id)
	return nil
}

/* ===================== Whiteboards ====================== */

func (s *memStore) GetWhiteboard(id int64) (*Whiteboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wb, ok := s.whiteboards[id]; ok {
		cp := *wb
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListWhiteboards() ([]Whiteboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Whiteboard, 0, len(s.whiteboards))
	for _, wb := range s.whiteboards {
		out = append(out, *wb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) CreateWhiteboard(wb *Whiteboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wb.ID = s.id("whiteboard")
	now := time.Now().UTC()
	wb.CreatedAt = now
	wb.UpdatedAt = now
	cp := *wb
	s.whiteboards[wb.ID] = &cp
	return nil
}

func (s *memStore) UpdateWhiteboard(wb *Whiteboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wb.UpdatedAt = time.Now().UTC()
	cp := *wb
	s.whiteboards[wb.ID] = &cp
	return nil
}

func (s *memStore) UpdateWhiteboardContent(id int64, content string) (*Whiteboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wb, ok := s.whiteboards[id]
	if !ok {
		return nil, nil
	}
	wb.Content = content
	wb.UpdatedAt = time.Now().UTC()
	cp := *wb
	return &cp, nil
}

func (s *memStore) DeleteWhiteboard(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.whiteboards, id)
	return nil
}

/* ===================== AI drafts ====================== */

func (s *memStore) CreateAITestCase(a *AITestCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id("ai")
	a.CreatedAt = time.Now().UTC()
	cp := *a
	s.aiCases[a.ID] = &cp
	return nil
}

func (s *memStore) GetAITestCase(id int64) (*AITestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.aiCases[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListAITestCases() ([]AITestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AITestCase, 0, len(s.aiCases))
	for _, a := range s.aiCases {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) MarkAITestCaseImported(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.aiCases[id]; ok {
		a.Imported = true
	}
	return nil
}

/* ===================== Activity log ====================== */

func (s *memStore) AppendActivity(e *ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id("activity")
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	s.activity = append(s.activity, &cp)
	return nil
}

func (s *memStore) ListActivity(limit int) ([]ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]ActivityLog, 0, limit)
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.activity[i])
	}
	return out, nil
}

/* ===================== Aggregates ====================== */

func (s *memStore) CountTestCasesByStatus() (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int64{}
	for _, tc := range s.testCases {
		out[tc.Status]++
	}
	return out, nil
}

func (s *memStore) CountBugsByStatus() (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int64{}
	for _, b := range s.bugs {
		out[b.Status]++
	}
	return out, nil
}

func (s *memStore) GetTestRunStats() (*TestRunStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &TestRunStats{}
	var sum, n int64
	for _, r := range s.runs {
		stats.Total++
		switch r.Status {
		case RunStatusRunning:
			stats.Running++
		case RunStatusCompleted:
			stats.Completed++
			if r.Duration != nil {
				sum += *r.Duration
				n++
			}
		case RunStatusAborted:
			stats.Aborted++
		}
	}
	if n > 0 {
		avg := float64(sum) / float64(n)
		stats.AverageDuration = &avg
	}
	return stats, nil
}
