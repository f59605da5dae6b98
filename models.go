package main

import "time"

/* ===================== Enumerations ====================== */

// Roles, flat set membership — there is no hierarchy computation anywhere.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleTester = "tester"
	RoleViewer = "viewer"
)

// Test case status, denormalized from the latest recorded result.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusBlocked = "blocked"
	StatusPending = "pending"
)

// Test run status.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
)

// Bug status.
const (
	BugStatusOpen   = "open"
	BugStatusFixed  = "fixed"
	BugStatusClosed = "closed"
)

var validRoles = map[string]bool{RoleOwner: true, RoleAdmin: true, RoleTester: true, RoleViewer: true}
var validStatuses = map[string]bool{StatusPassed: true, StatusFailed: true, StatusBlocked: true, StatusPending: true}
var validPriorities = map[string]bool{"critical": true, "high": true, "medium": true, "low": true}
var validTypes = map[string]bool{"functional": true, "performance": true, "security": true, "usability": true}
var validBugStatuses = map[string]bool{BugStatusOpen: true, BugStatusFixed: true, BugStatusClosed: true}

/* ===================== DB models ====================== */

type User struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;size:320;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	FullName     string     `gorm:"size:120" json:"fullName"`
	Role         string     `gorm:"size:16;not null;default:tester" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	AvatarURL    string     `gorm:"size:512" json:"avatarUrl,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

type Folder struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedBy   int64     `gorm:"index" json:"createdBy"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`

	// Populated on list endpoints, not persisted.
	TestCount int64 `gorm:"-" json:"testCount"`
}

// FolderAssignment joins folders and test cases many-to-many.
// No unique constraint; re-assigning an existing pair is a no-op.
type FolderAssignment struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	FolderID   int64     `gorm:"index:idx_folder_case,priority:1;not null" json:"folderId"`
	TestCaseID int64     `gorm:"index:idx_folder_case,priority:2;not null" json:"testCaseId"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assignedAt"`
}

type TestCase struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description,omitempty"`
	Status         string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	Priority       string     `gorm:"size:16;not null;default:medium;index" json:"priority"`
	Type           string     `gorm:"size:16;not null;default:functional" json:"type"`
	AssignedTo     *int64     `gorm:"index" json:"assignedTo,omitempty"`
	CreatedBy      int64      `gorm:"index" json:"createdBy"`
	ExpectedResult string     `gorm:"type:text" json:"expectedResult,omitempty"`
	Version        int        `gorm:"not null;default:1" json:"version"`
	LastRun        *time.Time `json:"lastRun,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	// Populated on detail endpoints, not persisted on this row.
	Steps []TestStep `gorm:"-" json:"steps,omitempty"`
}

type TestStep struct {
	ID             int64  `gorm:"primaryKey" json:"id"`
	TestCaseID     int64  `gorm:"index;not null" json:"testCaseId"`
	StepNumber     int    `gorm:"not null" json:"stepNumber"`
	Description    string `gorm:"type:text;not null" json:"description"`
	ExpectedResult string `gorm:"type:text" json:"expectedResult,omitempty"`
}

// TestVersion is an append-only snapshot of a test case. Exactly one row
// exists per (case, version) pair: creation writes the version-1 snapshot and
// each update backfills the snapshot of the version it supersedes. Steps are
// packed as JSON; revert looks snapshots up by the explicit Version field,
// never by row position.
type TestVersion struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	TestCaseID     int64     `gorm:"uniqueIndex:idx_case_version,priority:1;not null" json:"testCaseId"`
	Version        int       `gorm:"uniqueIndex:idx_case_version,priority:2;not null" json:"version"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Description    string    `gorm:"type:text" json:"description,omitempty"`
	Status         string    `gorm:"size:16" json:"status"`
	Priority       string    `gorm:"size:16" json:"priority"`
	Type           string    `gorm:"size:16" json:"type"`
	ExpectedResult string    `gorm:"type:text" json:"expectedResult,omitempty"`
	StepsJSON      string    `gorm:"type:text" json:"-"`
	CreatedBy      int64     `json:"createdBy"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

type TestRun struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Status      string     `gorm:"size:16;not null;default:running" json:"status"`
	StartedBy   int64      `gorm:"index" json:"startedBy"`
	StartedAt   time.Time  `gorm:"autoCreateTime" json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Duration    *int64     `json:"duration,omitempty"` // whole seconds
}

type TestRunResult struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	RunID      int64     `gorm:"index;not null" json:"runId"`
	TestCaseID int64     `gorm:"index;not null" json:"testCaseId"`
	Status     string    `gorm:"size:16;not null" json:"status"`
	ExecutedBy int64     `json:"executedBy"`
	ExecutedAt time.Time `gorm:"autoCreateTime" json:"executedAt"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
}

type Bug struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Status      string    `gorm:"size:16;not null;default:open;index" json:"status"`
	ReportedBy  int64     `gorm:"index" json:"reportedBy"`
	TestCaseID  *int64    `gorm:"index" json:"testCaseId,omitempty"`
	ReportedAt  time.Time `gorm:"autoCreateTime" json:"reportedAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type Whiteboard struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedBy int64     `gorm:"index" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// AITestCase keeps the original prompt and the raw model response for audit.
type AITestCase struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	Response  string    `gorm:"type:text" json:"response"`
	Imported  bool      `gorm:"not null;default:false" json:"imported"`
	CreatedBy int64     `gorm:"index" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (AITestCase) TableName() string { return "ai_test_cases" }

type ActivityLog struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"index" json:"userId"`
	Action     string    `gorm:"size:64;not null" json:"action"`
	EntityType string    `gorm:"size:32;not null" json:"entityType"`
	EntityID   int64     `json:"entityId"`
	Details    string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}
