package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type testStepReq struct {
	Description    string `json:"description"`
	ExpectedResult string `json:"expectedResult"`
}

type testCaseCreateReq struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Priority       string        `json:"priority"`
	Type           string        `json:"type"`
	AssignedTo     *int64        `json:"assignedTo"`
	ExpectedResult string        `json:"expectedResult"`
	Steps          []testStepReq `json:"steps"`
}

type testCaseUpdateReq struct {
	Title          *string        `json:"title"`
	Description    *string        `json:"description"`
	Status         *string        `json:"status"`
	Priority       *string        `json:"priority"`
	Type           *string        `json:"type"`
	AssignedTo     *int64         `json:"assignedTo"`
	ExpectedResult *string        `json:"expectedResult"`
	Steps          *[]testStepReq `json:"steps"` // nil = leave steps untouched
}

func toSteps(in []testStepReq) []TestStep {
	out := make([]TestStep, len(in))
	for i, s := range in {
		out[i] = TestStep{Description: s.Description, ExpectedResult: s.ExpectedResult}
	}
	return out
}

// GET /api/test-cases?status=&priority=&type=&assignedTo=&search=
func handleListTestCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter TestCaseFilter

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		if !validStatuses[v] {
			errorJSON(w, http.StatusBadRequest, "status must be one of passed, failed, blocked, pending")
			return
		}
		filter.Status = v
	}
	if v := strings.TrimSpace(q.Get("priority")); v != "" {
		if !validPriorities[v] {
			errorJSON(w, http.StatusBadRequest, "priority must be one of critical, high, medium, low")
			return
		}
		filter.Priority = v
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		if !validTypes[v] {
			errorJSON(w, http.StatusBadRequest, "type must be one of functional, performance, security, usability")
			return
		}
		filter.Type = v
	}
	if v := strings.TrimSpace(q.Get("assignedTo")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			errorJSON(w, http.StatusBadRequest, "assignedTo must be a user id")
			return
		}
		filter.AssignedTo = &id
	}
	filter.Search = strings.TrimSpace(q.Get("search"))

	cases, err := store.ListTestCases(filter)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"testCases": cases})
}

// GET /api/test-cases/{id} — includes ordered steps.
func handleGetTestCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test case id")
		return
	}
	tc, err := store.GetTestCase(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if tc == nil {
		errorJSON(w, http.StatusNotFound, "test case not found")
		return
	}
	steps, err := store.GetTestSteps(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	tc.Steps = steps
	writeJSON(w, http.StatusOK, tc)
}

// POST /api/test-cases
func handleCreateTestCase(w http.ResponseWriter, r *http.Request) {
	var in testCaseCreateReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		errorJSON(w, http.StatusBadRequest, "title is required")
		return
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}
	if !validPriorities[in.Priority] {
		errorJSON(w, http.StatusBadRequest, "priority must be one of critical, high, medium, low")
		return
	}
	if in.Type == "" {
		in.Type = "functional"
	}
	if !validTypes[in.Type] {
		errorJSON(w, http.StatusBadRequest, "type must be one of functional, performance, security, usability")
		return
	}
	if in.AssignedTo != nil {
		u, err := store.GetUser(*in.AssignedTo)
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, "db error")
			return
		}
		if u == nil {
			errorJSON(w, http.StatusNotFound, "assignee not found")
			return
		}
	}

	actor := currentUser(r)
	tc := TestCase{
		Title:          in.Title,
		Description:    in.Description,
		Status:         StatusPending,
		Priority:       in.Priority,
		Type:           in.Type,
		AssignedTo:     in.AssignedTo,
		CreatedBy:      actor.ID,
		ExpectedResult: in.ExpectedResult,
	}
	if err := store.CreateTestCase(&tc, toSteps(in.Steps)); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	logActivity(actor.ID, ActionCreateTestCase, "test_case", tc.ID, tc.Title)
	writeJSON(w, http.StatusCreated, tc)
}

// PUT /api/test-cases/{id} — scalar fields are patched; a steps array (even
// empty) replaces the whole step set; omitting steps leaves them untouched.
func handleUpdateTestCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test case id")
		return
	}
	var in testCaseUpdateReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		errorJSON(w, http.StatusBadRequest, "title must not be empty")
		return
	}
	if in.Status != nil && !validStatuses[*in.Status] {
		errorJSON(w, http.StatusBadRequest, "status must be one of passed, failed, blocked, pending")
		return
	}
	if in.Priority != nil && !validPriorities[*in.Priority] {
		errorJSON(w, http.StatusBadRequest, "priority must be one of critical, high, medium, low")
		return
	}
	if in.Type != nil && !validTypes[*in.Type] {
		errorJSON(w, http.StatusBadRequest, "type must be one of functional, performance, security, usability")
		return
	}
	if in.AssignedTo != nil {
		u, err := store.GetUser(*in.AssignedTo)
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, "db error")
			return
		}
		if u == nil {
			errorJSON(w, http.StatusNotFound, "assignee not found")
			return
		}
	}

	patch := TestCasePatch{
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		Type:           in.Type,
		AssignedTo:     in.AssignedTo,
		ExpectedResult: in.ExpectedResult,
	}
	var steps *[]TestStep
	if in.Steps != nil {
		s := toSteps(*in.Steps)
		steps = &s
	}

	actor := currentUser(r)
	tc, err := store.UpdateTestCase(id, patch, steps, actor.ID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if tc == nil {
		errorJSON(w, http.StatusNotFound, "test case not found")
		return
	}
	logActivity(actor.ID, ActionUpdateTestCase, "test_case", tc.ID, tc.Title)
	writeJSON(w, http.StatusOK, tc)
}

// DELETE /api/test-cases/{id} — steps go first, then the case row.
func handleDeleteTestCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test case id")
		return
	}
	tc, err := store.GetTestCase(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if tc == nil {
		errorJSON(w, http.StatusNotFound, "test case not found")
		return
	}
	if err := store.DeleteTestCase(id); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionDeleteTestCase, "test_case", id, tc.Title)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

/* --------- Version history --------- */

// GET /api/test-cases/{id}/versions
func handleTestCaseVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test case id")
		return
	}
	tc, err := store.GetTestCase(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if tc == nil {
		errorJSON(w, http.StatusNotFound, "test case not found")
		return
	}
	versions, err := store.GetTestVersions(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// POST /api/test-cases/{id}/revert  { "version": 2 }
//
// The snapshot is located by its stored version number. Reverting is itself
// an update: the pre-revert state gets snapshotted and the version counter
// keeps moving forward.
func handleRevertTestCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test case id")
		return
	}
	var in struct {
		Version int `json:"version"`
	}
	if err := decodeJSON(r, &in); err != nil || in.Version <= 0 {
		errorJSON(w, http.StatusBadRequest, "a positive version number is required")
		return
	}

	tc, err := store.GetTestCase(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if tc == nil {
		errorJSON(w, http.StatusNotFound, "test case not found")
		return
	}
	v, err := store.GetTestVersion(id, in.Version)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if v == nil {
		errorJSON(w, http.StatusNotFound, "version not found")
		return
	}

	steps := v.VersionSteps()
	patch := TestCasePatch{
		Title:          &v.Title,
		Description:    &v.Description,
		Status:         &v.Status,
		Priority:       &v.Priority,
		Type:           &v.Type,
		ExpectedResult: &v.ExpectedResult,
	}
	actor := currentUser(r)
	reverted, err := store.UpdateTestCase(id, patch, &steps, actor.ID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if reverted == nil {
		errorJSON(w, http.StatusNotFound, "test case not found")
		return
	}
	logActivity(actor.ID, ActionRevertTestCase, "test_case", id,
		fmt.Sprintf("reverted to version %d", in.Version))
	writeJSON(w, http.StatusOK, reverted)
}
