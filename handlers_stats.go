package main

import (
	"net/http"
	"strconv"
)

// GET /api/dashboard/stats
func handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	caseCounts, err := store.CountTestCasesByStatus()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	runStats, err := store.GetTestRunStats()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	bugCounts, err := store.CountBugsByStatus()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	userCount, err := store.CountUsers()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	recent, err := store.ListActivity(10)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	var total int64
	for _, n := range caseCounts {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"testCases": map[string]any{
			"total":    total,
			"byStatus": caseCounts,
		},
		"testRuns":       runStats,
		"bugs":           bugCounts,
		"users":          userCount,
		"recentActivity": recent,
	})
}

// GET /api/activity?limit=
func handleListActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			errorJSON(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	entries, err := store.ListActivity(limit)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	// attach the rendered description so the client never needs the table
	type entry struct {
		ActivityLog
		Description string `json:"description"`
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, entry{ActivityLog: e, Description: describeAction(e.Action, e.EntityType)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": out})
}
