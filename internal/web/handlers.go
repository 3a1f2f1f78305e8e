package web

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nconklindev/unitclean/internal/batch"
	"github.com/nconklindev/unitclean/internal/cleaner"
	"github.com/nconklindev/unitclean/internal/logging"
	"github.com/nconklindev/unitclean/internal/review"
	"github.com/nconklindev/unitclean/internal/types"
)

// UploadField is the multipart field holding the uploaded files.
const UploadField = "files"

type indexPage struct {
	MaxUploadMB int64
	OnFlag      string
}

type reviewPage struct {
	JobID   string
	Request cleaner.ReviewRequest
	Error   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", indexPage{
		MaxUploadMB: s.cfg.MaxUploadBytes >> 20,
		OnFlag:      s.clean.OnFlag,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"pending_reviews": s.board.Len(),
	})
}

// handleUpload cleans every uploaded file into a new job directory. Files
// with flagged rows stay pending until their review is answered.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondError(w, r, http.StatusBadRequest, "file too large or invalid form", err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[UploadField]
	if len(headers) == 0 {
		respondError(w, r, http.StatusBadRequest, "no files provided", nil)
		return
	}

	j := &job{
		ID:      uuid.NewString(),
		Created: time.Now(),
		runs:    make(map[string]*cleaner.Run),
	}
	j.Dir = filepath.Join(s.workDir, j.ID)
	if err := os.MkdirAll(j.Dir, 0o750); err != nil {
		respondError(w, r, http.StatusInternalServerError, "could not create job directory", err)
		return
	}

	runner := s.runner(j.Dir)
	runner.Logger = logging.FromContext(r.Context()).With("job_id", j.ID)

	seen := make(map[string]bool)
	for _, fh := range headers {
		name := uniqueName(filepath.Base(fh.Filename), seen)

		f, err := fh.Open()
		if err != nil {
			j.Entries = append(j.Entries, runner.Fail(name, fmt.Errorf("open upload: %w", err)))
			continue
		}
		entry, run := runner.ProcessReader(r.Context(), name, f)
		_ = f.Close()

		if entry.Outcome == batch.OutcomePending {
			j.runs[run.ID] = run
		}
		j.Entries = append(j.Entries, entry)
	}

	s.jobs.add(j)

	if wantsJSON(r) {
		v, _ := s.jobs.view(j.ID)
		writeJSON(w, http.StatusCreated, v)
		return
	}
	http.Redirect(w, r, "/jobs/"+j.ID+"/", http.StatusSeeOther)
}

// uniqueName keeps two uploads that would write the same output file from
// overwriting each other. Outputs are named after the stem, so a.csv and
// a.xlsx clash too.
func uniqueName(name string, seen map[string]bool) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	stem := base
	for n := 2; seen[stem]; n++ {
		stem = base + "-" + strconv.Itoa(n)
	}
	seen[stem] = true
	return stem + ext
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	v, ok := s.jobs.view(chi.URLParam(r, "jobID"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "job not found", nil)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, v)
		return
	}
	s.render(w, r, http.StatusOK, "job.html", v)
}

func (s *Server) handleReviewForm(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	jobID, ok := s.jobs.jobOf(runID)
	req, pending := s.board.Pending(runID)
	if !ok || !pending {
		respondError(w, r, http.StatusNotFound, "review not found or expired", nil)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, req)
		return
	}
	s.render(w, r, http.StatusOK, "review.html", reviewPage{JobID: jobID, Request: req})
}

// handleReviewSubmit records the decision and finishes the run. Delete is
// only accepted together with the confirm field.
func (s *Server) handleReviewSubmit(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	jobID, ok := s.jobs.jobOf(runID)
	req, pending := s.board.Pending(runID)
	if !ok || !pending {
		respondError(w, r, http.StatusNotFound, "review not found or expired", nil)
		return
	}

	if err := r.ParseForm(); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid form", err)
		return
	}

	d, err := types.ParseDecision(r.FormValue("decision"))
	if err == nil && d == types.DecisionDelete && !confirmed(r.FormValue("confirm")) {
		err = errors.New("confirm that the flagged rows should be permanently deleted")
	}
	if err != nil {
		if wantsJSON(r) {
			respondError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		s.render(w, r, http.StatusBadRequest, "review.html", reviewPage{JobID: jobID, Request: req, Error: err.Error()})
		return
	}

	if err := s.board.Decide(runID, d); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, review.ErrUnknownReview) {
			status = http.StatusNotFound
		}
		respondError(w, r, status, "review not found or expired", err)
		return
	}

	j, run, ok := s.jobs.claim(runID)
	if !ok {
		respondError(w, r, http.StatusConflict, "review already answered", nil)
		return
	}

	runner := s.runner(j.Dir)
	runner.Logger = logging.FromContext(r.Context()).With("job_id", j.ID)
	entry := runner.Resume(r.Context(), run)
	s.jobs.settle(j.ID, runID, entry)

	if wantsJSON(r) {
		entry.RunID = runID
		writeJSON(w, http.StatusOK, entry)
		return
	}
	http.Redirect(w, r, "/jobs/"+j.ID+"/", http.StatusSeeOther)
}

func confirmed(v string) bool {
	switch strings.ToLower(v) {
	case "on", "yes", "true", "1":
		return true
	}
	return false
}

// outputs lists the files written for a job, keyed by base name.
func outputs(v jobView) map[string]string {
	files := make(map[string]string)
	for _, e := range v.Entries {
		for _, p := range []string{e.Output, e.RemovedOutput} {
			if p != "" {
				files[filepath.Base(p)] = p
			}
		}
	}
	return files
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	v, ok := s.jobs.view(chi.URLParam(r, "jobID"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "job not found", nil)
		return
	}

	name := chi.URLParam(r, "name")
	path, ok := outputs(v)[name]
	if !ok {
		respondError(w, r, http.StatusNotFound, "file not found", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	http.ServeFile(w, r, path)
}

// handleArchive streams every written file of a job as one zip.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	v, ok := s.jobs.view(chi.URLParam(r, "jobID"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "job not found", nil)
		return
	}

	files := outputs(v)
	if len(files) == 0 {
		respondError(w, r, http.StatusNotFound, "no cleaned files yet", nil)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="unitclean-%s.zip"`, v.ID[:8]))

	zw := zip.NewWriter(w)
	for _, name := range slices.Sorted(maps.Keys(files)) {
		if err := addToZip(zw, name, files[name]); err != nil {
			logging.FromContext(r.Context()).Error("write archive", "file", name, "error", err)
			return
		}
	}
	if err := zw.Close(); err != nil {
		logging.FromContext(r.Context()).Error("close archive", "error", err)
	}
}

func addToZip(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
