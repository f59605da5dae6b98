package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Package-level wiring, set once in main (tests swap in a memStore).
var (
	cfg   Config
	store Store
)

func main() {
	loadDotenv()
	cfg = loadConfig()

	db, err := openGormIPv4(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[DB] connect failed: %v", err)
	}
	log.Println("[DB] connected")
	if err := autoMigrate(db); err != nil {
		log.Fatalf("[DB] migrate failed: %v", err)
	}
	store = newGormStore(db)

	hub := newHub()
	go hub.run()

	r := newRouter(hub)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Println("API listening on", addr, "CORS_ORIGIN:", cfg.CORSOrigin)
	log.Fatal(srv.ListenAndServe())
}

func newRouter(hub *Hub) *chi.Mux {
	r := chi.NewRouter()

	// allow comma-separated list of origins
	var origins []string
	for _, p := range strings.Split(cfg.CORSOrigin, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// Realtime relay (deliberately outside the auth stack)
	if hub != nil {
		r.Get("/ws", hub.handleWS)
	}

	r.Route("/api", func(r chi.Router) {
		// Auth
		r.Post("/auth/register", handleAuthRegister)
		r.Post("/auth/login", handleAuthLogin)
		r.Post("/auth/logout", handleAuthLogout)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/auth/me", handleAuthMe)
		})

		// Users (admin only)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireRole(adminOnly...))
			r.Get("/users", handleListUsers)
			r.Get("/users/{id}", handleGetUser)
			r.Post("/users", handleCreateUser)
			r.Put("/users/{id}", handleUpdateUser)
			r.Delete("/users/{id}", handleDeactivateUser)
			r.Get("/activity", handleListActivity)
		})

		// Read side: any authenticated role
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireRole(viewerUp...))
			r.Get("/folders", handleListFolders)
			r.Get("/folders/{id}", handleGetFolder)
			r.Get("/folders/{id}/test-cases", handleFolderTestCases)
			r.Get("/test-cases", handleListTestCases)
			r.Get("/test-cases/{id}", handleGetTestCase)
			r.Get("/test-cases/{id}/versions", handleTestCaseVersions)
			r.Get("/test-cases/{id}/folders", handleTestCaseFolders)
			r.Get("/test-runs", handleListTestRuns)
			r.Get("/test-runs/{id}", handleGetTestRun)
			r.Get("/test-runs/{id}/results", handleListRunResults)
			r.Get("/bugs", handleListBugs)
			r.Get("/bugs/{id}", handleGetBug)
			r.Get("/whiteboards", handleListWhiteboards)
			r.Get("/whiteboards/{id}", handleGetWhiteboard)
			r.Get("/dashboard/stats", handleDashboardStats)
			r.Get("/ai/history", handleAIHistory)
		})

		// Write side: tester and above
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireRole(testerUp...))
			r.Post("/folders", handleCreateFolder)
			r.Put("/folders/{id}", handleUpdateFolder)
			r.Delete("/folders/{id}", handleDeleteFolder)
			r.Post("/test-cases", handleCreateTestCase)
			r.Put("/test-cases/{id}", handleUpdateTestCase)
			r.Delete("/test-cases/{id}", handleDeleteTestCase)
			r.Post("/test-cases/{id}/revert", handleRevertTestCase)
			r.Post("/test-cases/{id}/folders", handleAssignFolder)
			r.Delete("/test-cases/{id}/folders/{folderId}", handleUnassignFolder)
			r.Post("/test-runs", handleCreateTestRun)
			r.Put("/test-runs/{id}", handleUpdateTestRun)
			r.Delete("/test-runs/{id}", handleDeleteTestRun)
			r.Post("/test-runs/{id}/complete", handleCompleteTestRun)
			r.Post("/test-runs/{id}/results", handleCreateRunResult)
			r.Post("/bugs", handleCreateBug)
			r.Put("/bugs/{id}", handleUpdateBug)
			r.Delete("/bugs/{id}", handleDeleteBug)
			r.Post("/whiteboards", handleCreateWhiteboard)
			r.Put("/whiteboards/{id}", handleUpdateWhiteboard)
			r.Delete("/whiteboards/{id}", handleDeleteWhiteboard)
			r.Post("/ai/generate", handleAIGenerate)
			r.Post("/ai/import", handleAIImport)
		})
	})

	return r
}
