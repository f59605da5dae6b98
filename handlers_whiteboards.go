package main

import (
	"net/http"
	"strings"
)

type whiteboardReq struct {
	Name    *string `json:"name"`
	Content *string `json:"content"`
}

// GET /api/whiteboards
func handleListWhiteboards(w http.ResponseWriter, r *http.Request) {
	boards, err := store.ListWhiteboards()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"whiteboards": boards})
}

// GET /api/whiteboards/{id}
func handleGetWhiteboard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid whiteboard id")
		return
	}
	wb, err := store.GetWhiteboard(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if wb == nil {
		errorJSON(w, http.StatusNotFound, "whiteboard not found")
		return
	}
	writeJSON(w, http.StatusOK, wb)
}

// POST /api/whiteboards
func handleCreateWhiteboard(w http.ResponseWriter, r *http.Request) {
	var in whiteboardReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		errorJSON(w, http.StatusBadRequest, "name is required")
		return
	}
	actor := currentUser(r)
	wb := Whiteboard{Name: strings.TrimSpace(*in.Name), CreatedBy: actor.ID}
	if in.Content != nil {
		wb.Content = *in.Content
	}
	if err := store.CreateWhiteboard(&wb); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	logActivity(actor.ID, ActionCreateWhiteboard, "whiteboard", wb.ID, wb.Name)
	writeJSON(w, http.StatusCreated, wb)
}

// PUT /api/whiteboards/{id} — the realtime relay writes the same row through
// UpdateWhiteboardContent; the two paths are not ordered with respect to each
// other.
func handleUpdateWhiteboard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid whiteboard id")
		return
	}
	var in whiteboardReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	wb, err := store.GetWhiteboard(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if wb == nil {
		errorJSON(w, http.StatusNotFound, "whiteboard not found")
		return
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			errorJSON(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		wb.Name = strings.TrimSpace(*in.Name)
	}
	if in.Content != nil {
		wb.Content = *in.Content
	}
	if err := store.UpdateWhiteboard(wb); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionUpdateWhiteboard, "whiteboard", wb.ID, wb.Name)
	writeJSON(w, http.StatusOK, wb)
}

// DELETE /api/whiteboards/{id}
func handleDeleteWhiteboard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid whiteboard id")
		return
	}
	wb, err := store.GetWhiteboard(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if wb == nil {
		errorJSON(w, http.StatusNotFound, "whiteboard not found")
		return
	}
	if err := store.DeleteWhiteboard(id); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionDeleteWhiteboard, "whiteboard", id, wb.Name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
