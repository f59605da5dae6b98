package main

import "encoding/json"

/* ===================== Store contract ====================== */

// Store is the persistence gateway. Two implementations exist: gormStore
// (Postgres) and memStore (in-process maps, used by tests and demos).
//
// Conventions shared by both:
//   - expected "not found" returns a nil entity and a nil error; handlers map
//     that to 404
//   - unexpected backend failures return a non-nil error; handlers map that
//     to 500
//   - list filters combine with AND when multiple fields are set
type Store interface {
	// users
	GetUser(id int64) (*User, error)
	GetUserByUsername(username string) (*User, error)
	GetUserByEmail(email string) (*User, error)
	ListUsers() ([]User, error)
	CreateUser(u *User) error
	UpdateUser(u *User) error
	CountUsers() (int64, error)

	// folders
	GetFolder(id int64) (*Folder, error)
	ListFolders() ([]Folder, error)
	CreateFolder(f *Folder) error
	UpdateFolder(f *Folder) error
	DeleteFolder(id int64) error
	CountFolderCases() (map[int64]int64, error)

	// folder <-> test case assignment (many-to-many)
	AssignTestCaseToFolder(folderID, testCaseID int64) (*FolderAssignment, error)
	RemoveTestCaseFromFolder(folderID, testCaseID int64) error
	GetFolderTestCases(folderID int64) ([]TestCase, error)
	GetTestCaseFolders(testCaseID int64) ([]Folder, error)

	// test cases and steps
	GetTestCase(id int64) (*TestCase, error)
	ListTestCases(f TestCaseFilter) ([]TestCase, error)
	CreateTestCase(tc *TestCase, steps []TestStep) error
	UpdateTestCase(id int64, patch TestCasePatch, steps *[]TestStep, actorID int64) (*TestCase, error)
	DeleteTestCase(id int64) error
	GetTestSteps(testCaseID int64) ([]TestStep, error)

	// version history
	GetTestVersions(testCaseID int64) ([]TestVersion, error)
	GetTestVersion(testCaseID int64, version int) (*TestVersion, error)

	// test runs and results
	GetTestRun(id int64) (*TestRun, error)
	ListTestRuns() ([]TestRun, error)
	CreateTestRun(r *TestRun) error
	UpdateTestRun(r *TestRun) error
	DeleteTestRun(id int64) error
	CompleteTestRun(id int64) (*TestRun, error)
	CreateTestRunResult(res *TestRunResult) error
	GetTestRunResults(runID int64) ([]TestRunResult, error)

	// bugs
	GetBug(id int64) (*Bug, error)
	ListBugs(status string) ([]Bug, error)
	CreateBug(b *Bug) error
	UpdateBug(b *Bug) error
	DeleteBug(id int64) error

	// whiteboards
	GetWhiteboard(id int64) (*Whiteboard, error)
	ListWhiteboards() ([]Whiteboard, error)
	CreateWhiteboard(wb *Whiteboard) error
	UpdateWhiteboard(wb *Whiteboard) error
	UpdateWhiteboardContent(id int64, content string) (*Whiteboard, error)
	DeleteWhiteboard(id int64) error

	// AI-generated drafts
	CreateAITestCase(a *AITestCase) error
	GetAITestCase(id int64) (*AITestCase, error)
	ListAITestCases() ([]AITestCase, error)
	MarkAITestCaseImported(id int64) error

	// activity log
	AppendActivity(e *ActivityLog) error
	ListActivity(limit int) ([]ActivityLog, error)

	// dashboard aggregates
	CountTestCasesByStatus() (map[string]int64, error)
	CountBugsByStatus() (map[string]int64, error)
	GetTestRunStats() (*TestRunStats, error)
}

// TestCaseFilter narrows ListTestCases. Zero values mean "no constraint".
type TestCaseFilter struct {
	Status     string
	Priority   string
	Type       string
	AssignedTo *int64
	Search     string // substring match on title
}

// TestCasePatch carries partial scalar updates; nil fields are left untouched.
type TestCasePatch struct {
	Title          *string
	Description    *string
	Status         *string
	Priority       *string
	Type           *string
	AssignedTo     *int64
	ClearAssignee  bool
	ExpectedResult *string
}

// TestRunStats is the dashboard aggregate over all runs.
type TestRunStats struct {
	Total           int64    `json:"total"`
	Running         int64    `json:"running"`
	Completed       int64    `json:"completed"`
	Aborted         int64    `json:"aborted"`
	AverageDuration *float64 `json:"averageDuration,omitempty"` // seconds, over completed runs
}

/* ===================== Shared helpers ====================== */

// renumberSteps stamps steps with the owning case id and a 1-based number
// derived from slice position, discarding any caller-supplied numbering.
func renumberSteps(testCaseID int64, steps []TestStep) []TestStep {
	out := make([]TestStep, len(steps))
	for i, s := range steps {
		s.ID = 0
		s.TestCaseID = testCaseID
		s.StepNumber = i + 1
		out[i] = s
	}
	return out
}

func applyTestCasePatch(tc *TestCase, p TestCasePatch) {
	if p.Title != nil {
		tc.Title = *p.Title
	}
	if p.Description != nil {
		tc.Description = *p.Description
	}
	if p.Status != nil {
		tc.Status = *p.Status
	}
	if p.Priority != nil {
		tc.Priority = *p.Priority
	}
	if p.Type != nil {
		tc.Type = *p.Type
	}
	if p.ClearAssignee {
		tc.AssignedTo = nil
	} else if p.AssignedTo != nil {
		tc.AssignedTo = p.AssignedTo
	}
	if p.ExpectedResult != nil {
		tc.ExpectedResult = *p.ExpectedResult
	}
}

// snapshotVersion captures the pre-update state of a case, steps packed as JSON.
func snapshotVersion(tc *TestCase, steps []TestStep, actorID int64) TestVersion {
	b, _ := json.Marshal(steps)
	return TestVersion{
		TestCaseID:     tc.ID,
		Version:        tc.Version,
		Title:          tc.Title,
		Description:    tc.Description,
		Status:         tc.Status,
		Priority:       tc.Priority,
		Type:           tc.Type,
		ExpectedResult: tc.ExpectedResult,
		StepsJSON:      string(b),
		CreatedBy:      actorID,
	}
}

// VersionSteps unpacks the steps stored with a snapshot.
func (v *TestVersion) VersionSteps() []TestStep {
	if v.StepsJSON == "" {
		return nil
	}
	var steps []TestStep
	_ = json.Unmarshal([]byte(v.StepsJSON), &steps)
	return steps
}
