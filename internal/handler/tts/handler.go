// Package tts serves synthesized speech artifacts to the client player.
package tts

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	ttsService "github.com/caseprep/interview-live/internal/service/tts"
	"github.com/caseprep/interview-live/pkg/utils"
)

// artifactTTL is how long a served artifact stays on disk before cleanup.
const artifactTTL = 60 * time.Second

// Handler serves chunk audio out of the synthesis cache directory.
type Handler struct {
	cacheDir string
}

// New creates the artifact handler over the given cache directory.
func New(cacheDir string) *Handler {
	return &Handler{cacheDir: cacheDir}
}

// RegisterRoutes mounts the artifact endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tts", h.handleGet)
}

// handleGet streams one mp3 artifact, then schedules its removal. A chunk is
// fetched exactly once per playback, so a short grace window is enough to
// cover client retries.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	chunkID := r.URL.Query().Get("chunkId")
	if sessionID == "" || chunkID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId and chunkId query parameters are required")
		return
	}

	// Synthesis session ids are always UUIDs; anything else never names an
	// artifact and must not reach the filesystem.
	if _, err := uuid.Parse(sessionID); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "sessionId must be a valid session id")
		return
	}

	index, err := strconv.Atoi(chunkID)
	if err != nil || index < 0 {
		utils.RespondError(w, http.StatusBadRequest, "chunkId must be a non-negative integer")
		return
	}

	path := ttsService.ArtifactPath(h.cacheDir, sessionID, index)
	if _, err := os.Stat(path); err != nil {
		utils.RespondError(w, http.StatusNotFound, "audio chunk not ready")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)

	time.AfterFunc(artifactTTL, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[tts] artifact cleanup failed path=%s: %v", path, err)
		}
	})
}
