package main

import (
	"log"
	"strings"
)

/* ===================== Action vocabulary ====================== */

// Action tags are string literals rendered client-side by a formatting table;
// an unknown tag falls back to a generic verb-noun humanization.
const (
	ActionUserLogin      = "user_login"
	ActionCreateUser     = "create_user"
	ActionUpdateUser     = "update_user"
	ActionDeactivateUser = "deactivate_user"

	ActionCreateFolder = "create_folder"
	ActionUpdateFolder = "update_folder"
	ActionDeleteFolder = "delete_folder"

	ActionCreateTestCase = "create_test_case"
	ActionUpdateTestCase = "update_test_case"
	ActionDeleteTestCase = "delete_test_case"
	ActionRevertTestCase = "revert_test_case"
	ActionAssignFolder   = "assign_test_case_folder"
	ActionUnassignFolder = "unassign_test_case_folder"

	ActionCreateTestRun   = "create_test_run"
	ActionUpdateTestRun   = "update_test_run"
	ActionDeleteTestRun   = "delete_test_run"
	ActionCompleteTestRun = "complete_test_run"
	ActionRecordResult    = "record_test_result"

	ActionCreateBug = "create_bug"
	ActionUpdateBug = "update_bug"
	ActionDeleteBug = "delete_bug"

	ActionCreateWhiteboard = "create_whiteboard"
	ActionUpdateWhiteboard = "update_whiteboard"
	ActionDeleteWhiteboard = "delete_whiteboard"

	ActionGenerateAICases = "generate_ai_test_cases"
	ActionImportAICases   = "import_ai_test_cases"
)

var actionDescriptions = map[string]string{
	ActionUserLogin:        "logged in",
	ActionCreateUser:       "created a user",
	ActionUpdateUser:       "updated a user",
	ActionDeactivateUser:   "deactivated a user",
	ActionCreateFolder:     "created a folder",
	ActionUpdateFolder:     "updated a folder",
	ActionDeleteFolder:     "deleted a folder",
	ActionCreateTestCase:   "created a test case",
	ActionUpdateTestCase:   "updated a test case",
	ActionDeleteTestCase:   "deleted a test case",
	ActionRevertTestCase:   "reverted a test case",
	ActionAssignFolder:     "assigned a test case to a folder",
	ActionUnassignFolder:   "removed a test case from a folder",
	ActionCreateTestRun:    "started a test run",
	ActionUpdateTestRun:    "updated a test run",
	ActionDeleteTestRun:    "deleted a test run",
	ActionCompleteTestRun:  "completed a test run",
	ActionRecordResult:     "recorded a test result",
	ActionCreateBug:        "reported a bug",
	ActionUpdateBug:        "updated a bug",
	ActionDeleteBug:        "deleted a bug",
	ActionCreateWhiteboard: "created a whiteboard",
	ActionUpdateWhiteboard: "updated a whiteboard",
	ActionDeleteWhiteboard: "deleted a whiteboard",
	ActionGenerateAICases:  "generated AI test case drafts",
	ActionImportAICases:    "imported AI test case drafts",
}

// describeAction renders an action tag for human consumption. Unknown tags
// degrade to "verb noun" built from the tag and entity type.
func describeAction(action, entityType string) string {
	if d, ok := actionDescriptions[action]; ok {
		return d
	}
	verb := action
	if i := strings.IndexByte(action, '_'); i > 0 {
		verb = action[:i]
	}
	noun := strings.ReplaceAll(entityType, "_", " ")
	return strings.TrimSpace(verb + " " + noun)
}

/* ===================== Append path ====================== */

// logActivity appends an audit entry after a successful mutation. The write
// is fire-and-forget: it shares no transaction with the mutation and a
// failure is logged server-side only, never surfaced to the caller.
func logActivity(actorID int64, action, entityType string, entityID int64, details string) {
	go func() {
		err := store.AppendActivity(&ActivityLog{
			UserID:     actorID,
			Action:     action,
			EntityType: entityType,
			EntityID:   entityID,
			Details:    details,
		})
		if err != nil {
			log.Printf("[activity] append failed action=%s entity=%s/%d: %v", action, entityType, entityID, err)
		}
	}()
}
