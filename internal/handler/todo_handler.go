package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-todo-api/internal/middleware"
	"go-todo-api/internal/model"
	"go-todo-api/internal/service"
	"go-todo-api/pkg/apierror"
)

type TodoHandler struct {
	service *service.TodoService
}

func NewTodoHandler(service *service.TodoService) *TodoHandler {
	return &TodoHandler{service: service}
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(r)
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	todos, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, todos)
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(r)
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	todo, err := h.service.Get(r.Context(), ownerID, chi.URLParam(r, "todo_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, todo)
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	ownerID, ok := ownerFromContext(r)
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	var payload model.CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	todo, err := h.service.Create(r.Context(), ownerID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, todo)
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	ownerID, ok := ownerFromContext(r)
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	var payload model.UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	todo, err := h.service.Update(r.Context(), ownerID, chi.URLParam(r, "todo_id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, todo)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(r)
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(r.Context(), ownerID, chi.URLParam(r, "todo_id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusNoContent, nil)
}

func (h *TodoHandler) DeleteCompleted(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(r)
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	if _, err := h.service.DeleteCompleted(r.Context(), ownerID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusNoContent, nil)
}

// ownerFromContext resolves the todo owner from the verified claims; the
// issuer claim carries the user id.
func ownerFromContext(r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.IssuerID, true
}
