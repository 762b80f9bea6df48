package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agridetect/internal/diagnose"
	"agridetect/internal/garden"
	"agridetect/internal/photos"
	"agridetect/internal/session"
)

// RemedySuggester is the ad-hoc remedy elaboration step.
type RemedySuggester interface {
	Suggest(ctx context.Context, disease, plantType, region string) (string, error)
}

// Handlers exposes the diagnosis pipeline over JSON endpoints.
type Handlers struct {
	Sessions      *session.Manager
	Remedies      RemedySuggester
	Garden        *garden.Store
	Photos        *photos.Store // optional photo archive
	MaxImageBytes int64
}

func (h *Handlers) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.Sessions.Create())
}

func (h *Handlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) handleLoadImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhotoDataURI string `json:"photoDataUri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.Sessions.LoadImage(chi.URLParam(r, "id"), req.PhotoDataURI)
	if err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) handleIdentify(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Sessions.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Sessions.Diagnose(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, snap, err := h.Sessions.Ask(r.Context(), chi.URLParam(r, "id"), req.Question)
	if err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Answer string              `json:"answer"`
		Chat   []diagnose.ChatTurn `json:"chat"`
	}{Answer: answer, Chat: snap.Chat})
}

func (h *Handlers) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Sessions.Reset(chi.URLParam(r, "id"))
	if err != nil {
		h.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) handleRemedies(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Disease   string `json:"disease"`
		PlantType string `json:"plantType"`
		Region    string `json:"region,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	remedies, err := h.Remedies.Suggest(r.Context(), req.Disease, req.PlantType, req.Region)
	if err != nil {
		if errors.Is(err, diagnose.ErrNoDisease) {
			httpError(w, http.StatusBadRequest, "disease is required")
			return
		}
		httpError(w, http.StatusBadGateway, "Could not generate remedies. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Remedies string `json:"remedies"`
	}{Remedies: remedies})
}

func (h *Handlers) handleSavePlant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	identity, diagnosis, imageURI, err := h.Sessions.Export(req.SessionID)
	if err != nil {
		h.sessionError(w, err)
		return
	}
	userID := UserID(r.Context())
	rec, err := h.Garden.Save(r.Context(), userID, garden.PlantData{
		PlantName:    identity.CommonName,
		LatinName:    identity.LatinName,
		ImageDataURI: imageURI,
		Diagnosis:    diagnosis,
	})
	if err != nil {
		httpError(w, http.StatusInternalServerError, "There was a problem saving your plant. Please try again.")
		return
	}
	h.archivePhoto(userID, rec.ID, imageURI)
	writeJSON(w, http.StatusCreated, rec)
}

// archivePhoto uploads the raw photo bytes to the object store in the
// background. Fire-and-forget: a fault is logged, never reported.
func (h *Handlers) archivePhoto(userID, recordID, imageURI string) {
	if h.Photos == nil {
		return
	}
	img, err := diagnose.ParseDataURI(imageURI, 0)
	if err != nil {
		log.Printf("photo archive: parse image: %v", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.Photos.Put(ctx, userID, recordID, img.MIMEType, img.Data); err != nil {
			log.Printf("photo archive: upload %s/%s: %v", userID, recordID, err)
		}
	}()
}

func (h *Handlers) handleListPlants(w http.ResponseWriter, r *http.Request) {
	plants, err := h.Garden.List(r.Context(), UserID(r.Context()))
	if err != nil {
		httpError(w, http.StatusInternalServerError, "Could not retrieve your plants. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Plants []garden.SavedPlant `json:"plants"`
	}{Plants: plants})
}

// sessionError maps pipeline errors onto HTTP statuses. Size-guard and
// format failures are pre-submission validation, not pipeline failures:
// the session keeps its phase.
func (h *Handlers) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		httpError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrConflict):
		httpError(w, http.StatusConflict, "another step is already running; wait for it to finish or reset")
	case errors.Is(err, session.ErrChatBusy):
		httpError(w, http.StatusConflict, "please wait for the previous answer")
	case errors.Is(err, session.ErrNoDiagnosis):
		httpError(w, http.StatusConflict, "no diagnosis available yet")
	case errors.Is(err, diagnose.ErrImageTooLarge):
		httpError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Please upload an image smaller than %dMB.", h.MaxImageBytes>>20))
	case errors.Is(err, diagnose.ErrImageEmpty), errors.Is(err, diagnose.ErrNotDataURI):
		httpError(w, http.StatusBadRequest, "Please upload a PNG, JPG, or WEBP image as a data URI.")
	default:
		httpError(w, http.StatusInternalServerError, "internal error")
	}
}
