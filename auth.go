package main

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 30 * 24 * time.Hour

/* --------- Helpers (cookie) --------- */

func setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   cfg.CookieSecure,
		Expires:  time.Now().Add(sessionTTL),
	})
}

func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   cfg.CookieSecure,
		MaxAge:   -1,
	})
}

/* --------- DTOs --------- */

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

/* --------- Handlers --------- */

// POST /api/auth/register — self-registration lands in the tester role;
// privileged roles are granted through the admin user endpoints.
func handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var in registerReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Username == "" || in.Email == "" || len(in.Password) < 8 {
		errorJSON(w, http.StatusBadRequest, "username, email and a password of at least 8 characters are required")
		return
	}

	if existing, err := store.GetUserByUsername(in.Username); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	} else if existing != nil {
		errorJSON(w, http.StatusConflict, "username already in use")
		return
	}
	if existing, err := store.GetUserByEmail(in.Email); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	} else if existing != nil {
		errorJSON(w, http.StatusConflict, "email already in use")
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	u := User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Role:         RoleTester,
		IsActive:     true,
	}
	if err := store.CreateUser(&u); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	tok, err := signToken(cfg.JWTSecret, u.ID, sessionTTL)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "token error")
		return
	}
	setAuthCookie(w, tok)
	logActivity(u.ID, ActionCreateUser, "user", u.ID, u.Username)
	writeJSON(w, http.StatusCreated, u)
}

// POST /api/auth/login
func handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var in loginReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := store.GetUserByUsername(strings.TrimSpace(in.Username))
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if u == nil || !u.IsActive {
		errorJSON(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		errorJSON(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	now := time.Now().UTC()
	u.LastLogin = &now
	if err := store.UpdateUser(u); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	tok, err := signToken(cfg.JWTSecret, u.ID, sessionTTL)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "token error")
		return
	}
	setAuthCookie(w, tok)
	logActivity(u.ID, ActionUserLogin, "user", u.ID, u.Username)
	writeJSON(w, http.StatusOK, u)
}

// POST /api/auth/logout
func handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// GET /api/auth/me
func handleAuthMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}
