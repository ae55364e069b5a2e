package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/leonardotrapani/mockroom/internal/grading"
)

type gradeHandler struct {
	config      ConfigSource
	newAssessor func(Settings) grading.Assessor
	metrics     *Metrics
}

func (h *gradeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Answer) == "" {
		WriteError(w, http.StatusBadRequest, "Missing `answer`")
		return
	}

	verdict, err := h.newAssessor(h.config.Settings()).Assess(r.Context(), req.Answer)
	switch {
	case errors.Is(err, grading.ErrInvalidResponse):
		log.Printf("Server: %v", err)
		h.metrics.upstreamResult("grading", "invalid")
		WriteError(w, http.StatusInternalServerError, "Invalid grader response")
	case err != nil:
		log.Printf("Server: grading upstream: %v", err)
		h.metrics.upstreamResult("grading", "error")
		WriteError(w, http.StatusBadGateway, "Grading failed")
	default:
		h.metrics.upstreamResult("grading", "ok")
		WriteJSON(w, http.StatusOK, verdict)
	}
}
