package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/orgball2608/storyshare/internal/capture"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/storage"
	"github.com/orgball2608/storyshare/pkg/errors"
)

// maxUploadSize bounds a story or avatar upload, multipart overhead included.
const maxUploadSize = 64 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialsResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type authorResponse struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

type storyResponse struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	MediaURL     string           `json:"media_url"`
	MediaKind    domain.MediaKind `json:"media_kind"`
	Caption      string           `json:"caption"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Author       *authorResponse  `json:"author,omitempty"`
	LikeCount    int64            `json:"like_count"`
	CommentCount int64            `json:"comment_count"`
	Deletable    bool             `json:"deletable"`
}

type profileResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newStoryResponse(item domain.FeedItem) storyResponse {
	return storyResponse{
		ID:           item.ID,
		UserID:       item.UserID,
		MediaURL:     item.MediaURL,
		MediaKind:    item.MediaKind,
		Caption:      item.Caption,
		CreatedAt:    item.CreatedAt,
		ExpiresAt:    item.ExpiresAt,
		Author:       &authorResponse{Username: item.AuthorUsername, AvatarURL: item.AuthorAvatarURL},
		LikeCount:    item.LikeCount,
		CommentCount: item.CommentCount,
		Deletable:    item.Deletable,
	}
}

func newStoryResponses(items []domain.FeedItem) []storyResponse {
	out := make([]storyResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newStoryResponse(item))
	}
	return out
}

func newProfileResponse(p *domain.Profile, own bool) profileResponse {
	out := profileResponse{
		ID:        p.ID,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
	}
	if own {
		out.Email = p.Email
	}
	return out
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.logger.Warn("Health check failed", "error", err)
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": "database connection failed"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "storyshare"})
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, s.identity.SignUp, http.StatusCreated)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, s.identity.SignIn, http.StatusOK)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, fn func(context.Context, string, string) (*domain.Credentials, error), status int) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creds, err := fn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, status, credentialsResponse{UserID: creds.UserID, Token: creds.Token, ExpiresAt: creds.ExpiresAt})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if err := s.identity.SignOut(r.Context(), sessionToken(r.Context())); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listStories(w http.ResponseWriter, r *http.Request) {
	items, err := s.feed.ListActiveStories(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newStoryResponses(items))
}

func (s *Server) myStories(w http.ResponseWriter, r *http.Request) {
	items, err := s.feed.ListOwnStories(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newStoryResponses(items))
}

// createStory accepts a multipart form (media file, caption) or a JSON body
// whose media field is a data: URI.
func (s *Server) createStory(w http.ResponseWriter, r *http.Request) {
	media, fields, err := readUpload(w, r, "media")
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	if media == nil {
		respondWithError(w, http.StatusBadRequest, "media is required")
		return
	}

	owner := userID(r.Context())
	story, err := s.publish.Publish(r.Context(), *media, owner, fields["caption"])
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, storyResponse{
		ID:        story.ID,
		UserID:    story.UserID,
		MediaURL:  s.store.PublicURL(storage.BucketStories, story.ImageURL),
		MediaKind: story.MediaKind,
		Caption:   story.Caption,
		CreatedAt: story.CreatedAt,
		ExpiresAt: story.ExpiresAt,
		Deletable: true,
	})
}

func (s *Server) deleteStory(w http.ResponseWriter, r *http.Request) {
	id, ok := storyID(w, r)
	if !ok {
		return
	}
	if err := s.feed.DeleteStory(r.Context(), userID(r.Context()), id); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) likeStory(w http.ResponseWriter, r *http.Request) {
	id, ok := storyID(w, r)
	if !ok {
		return
	}
	if err := s.feed.Like(r.Context(), userID(r.Context()), id); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func storyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid story id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) myProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.feed.GetProfile(r.Context(), userID(r.Context()))
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newProfileResponse(p, true))
}

func (s *Server) findProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.feed.FindProfile(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newProfileResponse(p, false))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	avatar, fields, err := readUpload(w, r, "avatar")
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}

	owner := userID(r.Context())
	if _, err := s.publish.UpdateProfile(r.Context(), owner, domain.ProfileUpdate{
		Username: fields["username"],
		Email:    fields["email"],
		Avatar:   avatar,
	}); err != nil {
		s.respondWithErr(w, r, err)
		return
	}

	// read back through the query layer so the avatar comes out resolved
	p, err := s.feed.GetProfile(r.Context(), owner)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newProfileResponse(p, true))
}

// readUpload extracts an optional file part named fileField plus the plain
// text fields of a multipart or JSON body.
func readUpload(w http.ResponseWriter, r *http.Request, fileField string) (*domain.CapturedMedia, map[string]string, error) {
	fields := make(map[string]string)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, nil, errors.WrapWithCode(err, errors.CodeInvalidInput, "Invalid request body")
		}
		for k, v := range body {
			fields[k] = v
		}
		uri := fields[fileField]
		if uri == "" {
			return nil, fields, nil
		}
		kind := domain.MediaVideo
		if strings.HasPrefix(uri, "data:image/") {
			kind = domain.MediaPhoto
		}
		return &domain.CapturedMedia{Kind: kind, URI: uri}, fields, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.CodeInvalidInput, "Invalid multipart form")
	}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	file, header, err := r.FormFile(fileField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, fields, nil
	}
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.CodeInvalidInput, "Invalid "+fileField+" file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.CodeInvalidInput, "Could not read "+fileField+" file")
	}
	media, err := capture.FromFile(header.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, nil, err
	}
	return &media, fields, nil
}

func (s *Server) serveMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if vars["bucket"] != storage.BucketStories && vars["bucket"] != storage.BucketAvatars {
		respondWithError(w, http.StatusNotFound, "Object not found")
		return
	}
	data, contentType, err := s.store.Get(r.Context(), vars["bucket"], vars["key"])
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Object not found")
		return
	case errors.Is(err, storage.ErrInvalidKey):
		respondWithError(w, http.StatusBadRequest, "Invalid object key")
		return
	case err != nil:
		s.logger.Error("Failed to read object", "bucket", vars["bucket"], "key", vars["key"], "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// keys are never reused, so objects can be cached for good
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
