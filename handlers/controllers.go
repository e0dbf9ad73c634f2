package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atclicenses.app/server/models"
)

func (s *Server) ListControllers(w http.ResponseWriter, r *http.Request) {
	controllers, err := s.Storage.ListControllers(r.Context(), r.URL.Query().Get("workplace"))
	if err != nil {
		s.Logger.Errorw("list controllers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load controllers")
		return
	}
	writeJSON(w, http.StatusOK, controllers)
}

func (s *Server) CreateController(w http.ResponseWriter, r *http.Request) {
	patch, err := decodePatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.Storage.InsertController(r.Context(), patch)
	if err != nil {
		s.Logger.Errorw("insert controller", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save controller")
		return
	}

	// Reload so the caller sees the stored row, server-assigned id
	// included, not its own input echoed back.
	created, err := s.Storage.GetController(r.Context(), id)
	if err != nil {
		s.Logger.Errorw("reload controller", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load controller")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) UpdateController(w http.ResponseWriter, r *http.Request) {
	id, err := controllerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid controller id")
		return
	}
	patch, err := decodePatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "no fields supplied")
		return
	}

	matched, err := s.Storage.UpdateController(r.Context(), id, patch)
	if err != nil {
		s.Logger.Errorw("update controller", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update controller")
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "controller not found")
		return
	}

	updated, err := s.Storage.GetController(r.Context(), id)
	if err != nil {
		s.Logger.Errorw("reload controller", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load controller")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) DeleteController(w http.ResponseWriter, r *http.Request) {
	id, err := controllerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid controller id")
		return
	}

	matched, err := s.Storage.DeleteController(r.Context(), id)
	if err != nil {
		s.Logger.Errorw("delete controller", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete controller")
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "controller not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "controller deleted"})
}

func (s *Server) DeleteAllControllers(w http.ResponseWriter, r *http.Request) {
	count, err := s.Storage.DeleteAllControllers(r.Context())
	if err != nil {
		s.Logger.Errorw("delete all controllers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete controllers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

func (s *Server) ListWorkplaces(w http.ResponseWriter, r *http.Request) {
	workplaces, err := s.Storage.Workplaces(r.Context())
	if err != nil {
		s.Logger.Errorw("list workplaces", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load workplaces")
		return
	}
	writeJSON(w, http.StatusOK, workplaces)
}

func controllerID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// decodePatch reads a typed field set from the request body. Unknown
// keys are a validation error rather than silently persisted columns.
func decodePatch(r *http.Request) (*models.ControllerPatch, error) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var patch models.ControllerPatch
	if err := dec.Decode(&patch); err != nil {
		return nil, fmt.Errorf("invalid request body: %s", decodeErrMessage(err))
	}
	return &patch, nil
}

func decodeErrMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	}
	return err.Error()
}
