package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Full workflow: folder, case, assignment, run, failed result, completion.
func TestRunWorkflow(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "sam", RoleTester))

	rec := doJSON(t, r, http.MethodPost, "/api/folders", sess, map[string]any{"name": "Smoke Tests"})
	require.Equal(t, http.StatusCreated, rec.Code)
	folder := decodeBody[Folder](t, rec)

	rec = doJSON(t, r, http.MethodPost, "/api/test-cases", sess, map[string]any{
		"title": "Login works",
		"steps": []map[string]any{
			{"description": "open login page"},
			{"description": "submit credentials", "expectedResult": "dashboard shown"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tc := decodeBody[TestCase](t, rec)

	rec = doJSON(t, r, http.MethodPost, "/api/test-cases/"+itoa(tc.ID)+"/folders", sess,
		map[string]any{"folderId": folder.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/folders/"+itoa(folder.ID), sess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decodeBody[Folder](t, rec).TestCount)

	rec = doJSON(t, r, http.MethodPost, "/api/test-runs", sess, map[string]any{"name": "Release 1.2"})
	require.Equal(t, http.StatusCreated, rec.Code)
	run := decodeBody[TestRun](t, rec)
	assert.Equal(t, RunStatusRunning, run.Status)

	rec = doJSON(t, r, http.MethodPost, "/api/test-runs/"+itoa(run.ID)+"/results", sess,
		map[string]any{"testCaseId": tc.ID, "status": "failed", "notes": "button missing"})
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decodeBody[TestRunResult](t, rec)
	assert.Equal(t, StatusFailed, res.Status)

	// the result flows back onto the case
	rec = doJSON(t, r, http.MethodGet, "/api/test-cases/"+itoa(tc.ID), sess, nil)
	got := decodeBody[TestCase](t, rec)
	assert.Equal(t, StatusFailed, got.Status)
	assert.NotNil(t, got.LastRun)

	rec = doJSON(t, r, http.MethodPost, "/api/test-runs/"+itoa(run.ID)+"/complete", sess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	done := decodeBody[TestRun](t, rec)
	assert.Equal(t, RunStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.Duration)
	assert.GreaterOrEqual(t, *done.Duration, int64(0))

	rec = doJSON(t, r, http.MethodGet, "/api/test-runs/"+itoa(run.ID)+"/results", sess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Results []TestRunResult `json:"results"`
	}](t, rec)
	require.Len(t, list.Results, 1)
	assert.Equal(t, "button missing", list.Results[0].Notes)
}

func TestUpdateTestRunGuardsCompletedStatus(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "sam", RoleTester))

	rec := doJSON(t, r, http.MethodPost, "/api/test-runs", sess, map[string]any{
		"name":        "Nightly",
		"description": "cron kicked",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	run := decodeBody[TestRun](t, rec)

	rec = doJSON(t, r, http.MethodPut, "/api/test-runs/"+itoa(run.ID), sess,
		map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// a status-only update must not wipe the other fields
	rec = doJSON(t, r, http.MethodPut, "/api/test-runs/"+itoa(run.ID), sess,
		map[string]any{"status": "aborted"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[TestRun](t, rec)
	assert.Equal(t, RunStatusAborted, updated.Status)
	assert.Equal(t, "Nightly", updated.Name)
	assert.Equal(t, "cron kicked", updated.Description)
}

func TestCreateRunResultChecksReferences(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "sam", RoleTester))

	rec := doJSON(t, r, http.MethodPost, "/api/test-runs/999/results", sess,
		map[string]any{"testCaseId": 1, "status": "passed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/test-runs", sess, map[string]any{"name": "n"})
	require.Equal(t, http.StatusCreated, rec.Code)
	run := decodeBody[TestRun](t, rec)

	rec = doJSON(t, r, http.MethodPost, "/api/test-runs/"+itoa(run.ID)+"/results", sess,
		map[string]any{"testCaseId": 999, "status": "passed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/test-runs/"+itoa(run.ID)+"/results", sess,
		map[string]any{"testCaseId": 1, "status": "excellent"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
