package main

import (
	"fmt"
	"net/http"
	"strings"
)

type testRunReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type runResultReq struct {
	TestCaseID int64  `json:"testCaseId"`
	Status     string `json:"status"`
	Notes      string `json:"notes"`
}

// GET /api/test-runs
func handleListTestRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListTestRuns()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"testRuns": runs})
}

// GET /api/test-runs/{id}
func handleGetTestRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test run id")
		return
	}
	run, err := store.GetTestRun(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if run == nil {
		errorJSON(w, http.StatusNotFound, "test run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// POST /api/test-runs — new runs always start in the running state.
func handleCreateTestRun(w http.ResponseWriter, r *http.Request) {
	var in testRunReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		errorJSON(w, http.StatusBadRequest, "run name is required")
		return
	}
	actor := currentUser(r)
	run := TestRun{
		Name:      strings.TrimSpace(*in.Name),
		Status:    RunStatusRunning,
		StartedBy: actor.ID,
	}
	if in.Description != nil {
		run.Description = *in.Description
	}
	if err := store.CreateTestRun(&run); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	logActivity(actor.ID, ActionCreateTestRun, "test_run", run.ID, run.Name)
	writeJSON(w, http.StatusCreated, run)
}

// PUT /api/test-runs/{id}
func handleUpdateTestRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test run id")
		return
	}
	var in testRunReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	run, err := store.GetTestRun(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if run == nil {
		errorJSON(w, http.StatusNotFound, "test run not found")
		return
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			errorJSON(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		run.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		run.Description = *in.Description
	}
	if in.Status != nil {
		switch *in.Status {
		case RunStatusRunning, RunStatusAborted:
			run.Status = *in.Status
		case RunStatusCompleted:
			errorJSON(w, http.StatusBadRequest, "use the complete endpoint to finish a run")
			return
		default:
			errorJSON(w, http.StatusBadRequest, "status must be one of running, aborted")
			return
		}
	}
	if err := store.UpdateTestRun(run); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionUpdateTestRun, "test_run", run.ID, run.Name)
	writeJSON(w, http.StatusOK, run)
}

// DELETE /api/test-runs/{id}
func handleDeleteTestRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test run id")
		return
	}
	run, err := store.GetTestRun(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if run == nil {
		errorJSON(w, http.StatusNotFound, "test run not found")
		return
	}
	if err := store.DeleteTestRun(id); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionDeleteTestRun, "test_run", id, run.Name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /api/test-runs/{id}/complete — stamps completedAt and the whole-second
// duration since the run started.
func handleCompleteTestRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test run id")
		return
	}
	run, err := store.CompleteTestRun(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if run == nil {
		errorJSON(w, http.StatusNotFound, "test run not found")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionCompleteTestRun, "test_run", run.ID, run.Name)
	writeJSON(w, http.StatusOK, run)
}

// POST /api/test-runs/{id}/results — recording a result also overwrites the
// referenced case's denormalized status and lastRun (last write wins).
func handleCreateRunResult(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test run id")
		return
	}
	var in runResultReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.TestCaseID <= 0 {
		errorJSON(w, http.StatusBadRequest, "testCaseId is required")
		return
	}
	if !validStatuses[in.Status] {
		errorJSON(w, http.StatusBadRequest, "status must be one of passed, failed, blocked, pending")
		return
	}

	run, err := store.GetTestRun(runID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if run == nil {
		errorJSON(w, http.StatusNotFound, "test run not found")
		return
	}
	tc, err := store.GetTestCase(in.TestCaseID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if tc == nil {
		errorJSON(w, http.StatusNotFound, "test case not found")
		return
	}

	actor := currentUser(r)
	res := TestRunResult{
		RunID:      runID,
		TestCaseID: in.TestCaseID,
		Status:     in.Status,
		ExecutedBy: actor.ID,
		Notes:      in.Notes,
	}
	if err := store.CreateTestRunResult(&res); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	logActivity(actor.ID, ActionRecordResult, "test_run", runID,
		fmt.Sprintf("case %d -> %s", in.TestCaseID, in.Status))
	writeJSON(w, http.StatusCreated, res)
}

// GET /api/test-runs/{id}/results
func handleListRunResults(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test run id")
		return
	}
	run, err := store.GetTestRun(runID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if run == nil {
		errorJSON(w, http.StatusNotFound, "test run not found")
		return
	}
	results, err := store.GetTestRunResults(runID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
