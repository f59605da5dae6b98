package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestCaseOverHTTP(t *testing.T) {
	r := setupEnv(t)
	tester := seedUser(t, "sam", RoleTester)
	sess := sessionCookie(t, tester)

	rec := doJSON(t, r, http.MethodPost, "/api/test-cases", sess, map[string]any{
		"title": "Password reset",
		"steps": []map[string]any{
			{"stepNumber": 40, "description": "request reset", "expectedResult": "email sent"},
			{"stepNumber": 2, "description": "follow link"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[TestCase](t, rec)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, "medium", created.Priority)
	assert.Equal(t, "functional", created.Type)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, tester.ID, created.CreatedBy)

	rec = doJSON(t, r, http.MethodGet, "/api/test-cases/"+itoa(created.ID), sess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[TestCase](t, rec)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, 1, got.Steps[0].StepNumber)
	assert.Equal(t, "request reset", got.Steps[0].Description)
	assert.Equal(t, 2, got.Steps[1].StepNumber)
}

func TestCreateTestCaseValidation(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "sam", RoleTester))

	rec := doJSON(t, r, http.MethodPost, "/api/test-cases", sess, map[string]any{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/test-cases", sess, map[string]any{
		"title": "ok", "priority": "urgent",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown assignee
	rec = doJSON(t, r, http.MethodPost, "/api/test-cases", sess, map[string]any{
		"title": "ok", "assignedTo": 9999,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTestCaseOverHTTP(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "sam", RoleTester))

	rec := doJSON(t, r, http.MethodPost, "/api/test-cases", sess, map[string]any{
		"title": "Before",
		"steps": []map[string]any{{"description": "one"}, {"description": "two"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tc := decodeBody[TestCase](t, rec)

	// patch a scalar without touching the steps
	rec = doJSON(t, r, http.MethodPut, "/api/test-cases/"+itoa(tc.ID), sess, map[string]any{
		"priority": "critical",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[TestCase](t, rec)
	assert.Equal(t, "critical", updated.Priority)
	assert.Equal(t, "Before", updated.Title)
	assert.Equal(t, 2, updated.Version)

	rec = doJSON(t, r, http.MethodGet, "/api/test-cases/"+itoa(tc.ID), sess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[TestCase](t, rec).Steps, 2)

	// sending a steps array replaces the set wholesale
	rec = doJSON(t, r, http.MethodPut, "/api/test-cases/"+itoa(tc.ID), sess, map[string]any{
		"steps": []map[string]any{{"description": "only"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, r, http.MethodGet, "/api/test-cases/"+itoa(tc.ID), sess, nil)
	got := decodeBody[TestCase](t, rec)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "only", got.Steps[0].Description)
	assert.Equal(t, 3, got.Version)
}

func TestRevertTestCaseOverHTTP(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "sam", RoleTester))

	rec := doJSON(t, r, http.MethodPost, "/api/test-cases", sess, map[string]any{
		"title": "Original title",
		"steps": []map[string]any{{"description": "original step"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tc := decodeBody[TestCase](t, rec)

	rec = doJSON(t, r, http.MethodPut, "/api/test-cases/"+itoa(tc.ID), sess, map[string]any{
		"title": "Renamed",
		"steps": []map[string]any{{"description": "replaced"}, {"description": "extra"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/test-cases/"+itoa(tc.ID)+"/revert", sess,
		map[string]any{"version": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	reverted := decodeBody[TestCase](t, rec)
	assert.Equal(t, "Original title", reverted.Title)
	// the revert is an update in its own right
	assert.Equal(t, 3, reverted.Version)

	rec = doJSON(t, r, http.MethodGet, "/api/test-cases/"+itoa(tc.ID), sess, nil)
	got := decodeBody[TestCase](t, rec)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "original step", got.Steps[0].Description)

	// one snapshot per superseded version: the creation state and the renamed
	// state the revert replaced
	rec = doJSON(t, r, http.MethodGet, "/api/test-cases/"+itoa(tc.ID)+"/versions", sess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decodeBody[struct {
		Versions []TestVersion `json:"versions"`
	}](t, rec)
	require.Len(t, hist.Versions, 2)
	assert.Equal(t, 1, hist.Versions[0].Version)
	assert.Equal(t, 2, hist.Versions[1].Version)
	assert.Equal(t, "Renamed", hist.Versions[1].Title)

	rec = doJSON(t, r, http.MethodPost, "/api/test-cases/"+itoa(tc.ID)+"/revert", sess,
		map[string]any{"version": 42})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTestCasesQueryValidation(t *testing.T) {
	r := setupEnv(t)
	sess := sessionCookie(t, seedUser(t, "vera", RoleViewer))

	rec := doJSON(t, r, http.MethodGet, "/api/test-cases?status=bogus", sess, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/test-cases?assignedTo=abc", sess, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/test-cases?status=pending&search=login", sess, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
