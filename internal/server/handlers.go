package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tender/internal"
	"tender/internal/fileio"
	"tender/internal/jobs"
	"tender/internal/middleware"
)

const listLimit = 20

type profileRequest struct {
	Name      string `json:"name"`
	ProfileID string `json:"profileId"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.db.ListProfiles()
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("bad json: %w", err))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.ProfileID = strings.TrimSpace(req.ProfileID)
	if req.Name == "" || req.ProfileID == "" {
		s.fail(w, r, http.StatusBadRequest, errors.New("name and profileId are required"))
		return
	}
	p, err := s.db.CreateProfile(req.Name, req.ProfileID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			s.fail(w, r, http.StatusConflict, fmt.Errorf("profileId %s already exists", req.ProfileID))
			return
		}
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.db.ListJobs(listLimit)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// createJob stores the uploaded sheet under INPUT_DIR and queues a new job.
func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("bad multipart form: %w", err))
		return
	}
	profileID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("profile_id")), 10, 64)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, errors.New("profile_id must be an integer"))
		return
	}
	profile, err := s.db.GetProfile(profileID)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if profile == nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("client profile %d not found", profileID))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("missing file: %w", err))
		return
	}
	defer file.Close()
	name := filepath.Base(header.Filename)
	if !fileio.Supported(name) {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", name))
		return
	}

	inputPath := filepath.Join(s.cfg.InputDir, uuid.NewString()+"_"+name)
	if err := saveUpload(file, inputPath); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	job, err := s.db.CreateJob(profile.ID, inputPath)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) downloadResult(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if job.Status != internal.JobDone || job.ResultPath == nil {
		s.fail(w, r, http.StatusConflict, fmt.Errorf("job %d has no result (status %s)", job.ID, job.Status))
		return
	}
	if _, err := os.Stat(*job.ResultPath); err != nil {
		s.fail(w, r, http.StatusNotFound, errors.New("result file is missing"))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(*job.ResultPath)))
	http.ServeFile(w, r, *job.ResultPath)
}

// runJob runs the job synchronously. A failed run still answers 200 with the
// job in status error; only a job that is already running is a conflict.
// The run outlives a client that hangs up.
func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	done, err := s.runner.Run(context.WithoutCancel(r.Context()), job.ID)
	switch {
	case errors.Is(err, jobs.ErrJobBusy):
		s.fail(w, r, http.StatusConflict, err)
		return
	case err != nil && done.Status != internal.JobError:
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, done)
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (internal.TenderJob, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, errors.New("bad job id"))
		return internal.TenderJob{}, false
	}
	job, err := s.db.GetJob(id)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return internal.TenderJob{}, false
	}
	if job == nil {
		s.fail(w, r, http.StatusNotFound, fmt.Errorf("job %d not found", id))
		return internal.TenderJob{}, false
	}
	return *job, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	logger := middleware.Log(r)
	ev := logger.Warn()
	if status >= http.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Int("status", status).Err(err).Msg("request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func saveUpload(src io.Reader, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
