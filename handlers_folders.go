package main

import (
	"fmt"
	"net/http"
	"strings"
)

type folderReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// GET /api/folders — each folder carries its assigned-case count.
func handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := store.ListFolders()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	counts, err := store.CountFolderCases()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	for i := range folders {
		folders[i].TestCount = counts[folders[i].ID]
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// GET /api/folders/{id}
func handleGetFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid folder id")
		return
	}
	f, err := store.GetFolder(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if f == nil {
		errorJSON(w, http.StatusNotFound, "folder not found")
		return
	}
	counts, err := store.CountFolderCases()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	f.TestCount = counts[f.ID]
	writeJSON(w, http.StatusOK, f)
}

// POST /api/folders
func handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var in folderReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		errorJSON(w, http.StatusBadRequest, "folder name is required")
		return
	}
	actor := currentUser(r)
	f := Folder{Name: strings.TrimSpace(*in.Name), CreatedBy: actor.ID}
	if in.Description != nil {
		f.Description = *in.Description
	}
	if err := store.CreateFolder(&f); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	logActivity(actor.ID, ActionCreateFolder, "folder", f.ID, f.Name)
	writeJSON(w, http.StatusCreated, f)
}

// PUT /api/folders/{id}
func handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid folder id")
		return
	}
	var in folderReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	f, err := store.GetFolder(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if f == nil {
		errorJSON(w, http.StatusNotFound, "folder not found")
		return
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			errorJSON(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		f.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		f.Description = *in.Description
	}
	if err := store.UpdateFolder(f); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionUpdateFolder, "folder", f.ID, f.Name)
	writeJSON(w, http.StatusOK, f)
}

// DELETE /api/folders/{id}
func handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid folder id")
		return
	}
	f, err := store.GetFolder(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if f == nil {
		errorJSON(w, http.StatusNotFound, "folder not found")
		return
	}
	if err := store.DeleteFolder(id); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionDeleteFolder, "folder", id, f.Name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /api/folders/{id}/test-cases
func handleFolderTestCases(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid folder id")
		return
	}
	f, err := store.GetFolder(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if f == nil {
		errorJSON(w, http.StatusNotFound, "folder not found")
		return
	}
	cases, err := store.GetFolderTestCases(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"testCases": cases})
}

/* --------- Folder assignment (nested under test cases) --------- */

// POST /api/test-cases/{id}/folders  { "folderId": 3 }
func handleAssignFolder(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test case id")
		return
	}
	var in struct {
		FolderID int64 `json:"folderId"`
	}
	if err := decodeJSON(r, &in); err != nil || in.FolderID <= 0 {
		errorJSON(w, http.StatusBadRequest, "folderId is required")
		return
	}

	tc, err := store.GetTestCase(caseID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if tc == nil {
		errorJSON(w, http.StatusNotFound, "test case not found")
		return
	}
	f, err := store.GetFolder(in.FolderID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if f == nil {
		errorJSON(w, http.StatusNotFound, "folder not found")
		return
	}

	fa, err := store.AssignTestCaseToFolder(in.FolderID, caseID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionAssignFolder, "test_case", caseID,
		fmt.Sprintf("folder %d (%s)", f.ID, f.Name))
	writeJSON(w, http.StatusOK, fa)
}

// DELETE /api/test-cases/{id}/folders/{folderId}
func handleUnassignFolder(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test case id")
		return
	}
	folderID, ok := pathID(r, "folderId")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid folder id")
		return
	}
	if err := store.RemoveTestCaseFromFolder(folderID, caseID); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionUnassignFolder, "test_case", caseID,
		fmt.Sprintf("folder %d", folderID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// GET /api/test-cases/{id}/folders
func handleTestCaseFolders(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid test case id")
		return
	}
	tc, err := store.GetTestCase(caseID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if tc == nil {
		errorJSON(w, http.StatusNotFound, "test case not found")
		return
	}
	folders, err := store.GetTestCaseFolders(caseID)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}
