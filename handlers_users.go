package main

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type userUpsertReq struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FullName  *string `json:"fullName"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"isActive"`
	AvatarURL *string `json:"avatarUrl"`
}

// GET /api/users
func handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// GET /api/users/{id}
func handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := store.GetUser(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if u == nil {
		errorJSON(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// POST /api/users — admin-created accounts may carry any role.
func handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in userUpsertReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Username == nil || strings.TrimSpace(*in.Username) == "" ||
		in.Email == nil || strings.TrimSpace(*in.Email) == "" ||
		in.Password == nil || len(*in.Password) < 8 {
		errorJSON(w, http.StatusBadRequest, "username, email and a password of at least 8 characters are required")
		return
	}
	role := RoleTester
	if in.Role != nil {
		if !validRoles[*in.Role] {
			errorJSON(w, http.StatusBadRequest, "role must be one of owner, admin, tester, viewer")
			return
		}
		role = *in.Role
	}

	username := strings.TrimSpace(*in.Username)
	email := strings.TrimSpace(strings.ToLower(*in.Email))
	if existing, err := store.GetUserByUsername(username); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	} else if existing != nil {
		errorJSON(w, http.StatusConflict, "username already in use")
		return
	}
	if existing, err := store.GetUserByEmail(email); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	} else if existing != nil {
		errorJSON(w, http.StatusConflict, "email already in use")
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
	u := User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if in.FullName != nil {
		u.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.AvatarURL != nil {
		u.AvatarURL = *in.AvatarURL
	}
	if err := store.CreateUser(&u); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}

	actor := currentUser(r)
	logActivity(actor.ID, ActionCreateUser, "user", u.ID, u.Username)
	writeJSON(w, http.StatusCreated, u)
}

// PUT /api/users/{id}
func handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var in userUpsertReq
	if err := decodeJSON(r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := store.GetUser(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if u == nil {
		errorJSON(w, http.StatusNotFound, "user not found")
		return
	}

	if in.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*in.Email))
		if email == "" {
			errorJSON(w, http.StatusBadRequest, "email must not be empty")
			return
		}
		if existing, err := store.GetUserByEmail(email); err != nil {
			errorJSON(w, http.StatusInternalServerError, "db error")
			return
		} else if existing != nil && existing.ID != id {
			errorJSON(w, http.StatusConflict, "email already in use")
			return
		}
		u.Email = email
	}
	if in.FullName != nil {
		u.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Role != nil {
		if !validRoles[*in.Role] {
			errorJSON(w, http.StatusBadRequest, "role must be one of owner, admin, tester, viewer")
			return
		}
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.AvatarURL != nil {
		u.AvatarURL = *in.AvatarURL
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			errorJSON(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, _ := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		u.PasswordHash = string(hash)
	}

	if err := store.UpdateUser(u); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionUpdateUser, "user", u.ID, u.Username)
	writeJSON(w, http.StatusOK, u)
}

// DELETE /api/users/{id} — soft deactivation; rows are never removed here.
func handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := store.GetUser(id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	if u == nil {
		errorJSON(w, http.StatusNotFound, "user not found")
		return
	}
	u.IsActive = false
	if err := store.UpdateUser(u); err != nil {
		errorJSON(w, http.StatusInternalServerError, "db error")
		return
	}
	actor := currentUser(r)
	logActivity(actor.ID, ActionDeactivateUser, "user", u.ID, u.Username)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
