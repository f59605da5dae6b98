package main

import (
	"net/http"
	"strings"
)

type bugReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	TestCaseID  *int64  `json:"testCaseId"`
}

// GET /api/bugs?status=
func handleListBugs(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !validBugStatuses[status] {
		errorJSON(w, http.StatusBadRequest, "status must be one of open, fixed, closed")
		return
	}
	bugs, err := store.ListBugs(status)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bugs": bugs})
}

// GET /api/bugs/{id}
func handleGetBug(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid bug id")
		return
	}
	b, err := store.GetBug(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if b == nil {
		errorJSON(w, http.StatusNotFound, "bug not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// POST /api/bugs
func handleCreateBug(w http.ResponseWriter, r *http.Request) {
	var in bugReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		errorJSON(w, http.StatusBadRequest, "title is required")
		return
	}
	if in.TestCaseID != nil {
		tc, err := store.GetTestCase(*in.TestCaseID)
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, "db error")
			return
		}
		if tc == nil {
			errorJSON(w, http.StatusNotFound, "linked test case not found")
			return
		}
	}

	actor := currentUser(r)
	b := Bug{
		Title:      strings.TrimSpace(*in.Title),
		Status:     BugStatusOpen,
		ReportedBy: actor.ID,
		TestCaseID: in.TestCaseID,
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if err := store.CreateBug(&b); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	logActivity(actor.ID, ActionCreateBug, "bug", b.ID, b.Title)
	writeJSON(w, http.StatusCreated, b)
}

// PUT /api/bugs/{id}
func handleUpdateBug(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid bug id")
		return
	}
	var in bugReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	b, err := store.GetBug(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if b == nil {
		errorJSON(w, http.StatusNotFound, "bug not found")
		return
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			errorJSON(w, http.StatusBadRequest, "title must not be empty")
			return
		}
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Status != nil {
		if !validBugStatuses[*in.Status] {
			errorJSON(w, http.StatusBadRequest, "status must be one of open, fixed, closed")
			return
		}
		b.Status = *in.Status
	}
	if in.TestCaseID != nil {
		tc, err := store.GetTestCase(*in.TestCaseID)
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, "db error")
			return
		}
		if tc == nil {
			errorJSON(w, http.StatusNotFound, "linked test case not found")
			return
		}
		b.TestCaseID = in.TestCaseID
	}
	if err := store.UpdateBug(b); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionUpdateBug, "bug", b.ID, b.Title)
	writeJSON(w, http.StatusOK, b)
}

// DELETE /api/bugs/{id}
func handleDeleteBug(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid bug id")
		return
	}
	b, err := store.GetBug(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if b == nil {
		errorJSON(w, http.StatusNotFound, "bug not found")
		return
	}
	if err := store.DeleteBug(id); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionDeleteBug, "bug", id, b.Title)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
