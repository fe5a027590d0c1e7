package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/go-chi/chi/v5"
)

type signupRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password *string `json:"password"`
}

type loginRequest struct {
	Username string  `json:"username"`
	Password *string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type uploadResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path"`
}

func (s *HTTPServer) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Hello": "World"})
}

func (s *HTTPServer) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == nil {
		writeDetail(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	token, err := s.users.Signup(r.Context(), req.Username, req.Email, *req.Password)
	switch {
	case errors.Is(err, common.ErrUsernameTaken):
		writeDetail(w, http.StatusBadRequest, "Username already registered")
	case errors.Is(err, common.ErrEmailTaken):
		writeDetail(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, common.ErrorValidation):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, http.StatusOK, tokenResponse{Token: token})
	}
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == nil {
		writeDetail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := s.users.Login(r.Context(), req.Username, *req.Password)
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		writeUnauthorized(w, "Incorrect username or password")
	case err != nil:
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, http.StatusOK, tokenResponse{Token: token})
	}
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()).Public())
}

func (s *HTTPServer) user(w http.ResponseWriter, r *http.Request) {
	p, err := s.users.LookupPublic(r.Context(), chi.URLParam(r, "username"))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeDetail(w, http.StatusNotFound, "User not found")
	case err != nil:
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *HTTPServer) upload(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	loc, err := s.uploads.Upload(r.Context(), userFrom(r.Context()).UserName, header.Filename, file)
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeDetail(w, http.StatusInternalServerError, "Could not save file")
	default:
		writeJSON(w, http.StatusOK, uploadResponse{Message: "File uploaded successfully", FilePath: loc})
	}
}
