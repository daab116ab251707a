package media

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mediabin/service/internal/auth"
	"github.com/mediabin/service/internal/cache"
	"github.com/mediabin/service/internal/response"
	"github.com/mediabin/service/internal/storage"
)

// Handler holds HTTP handlers for media endpoints.
type Handler struct {
	svc       *Service
	authSvc   *auth.Service
	validator *cache.Validator

	maxUploadBytes  int64
	securityEnabled bool
}

// NewHandler creates a new media Handler.
func NewHandler(svc *Service, authSvc *auth.Service, validator *cache.Validator, maxUploadBytes int64, securityEnabled bool) *Handler {
	return &Handler{
		svc:             svc,
		authSvc:         authSvc,
		validator:       validator,
		maxUploadBytes:  maxUploadBytes,
		securityEnabled: securityEnabled,
	}
}

// Upload godoc
//
//	@Summary		Upload image
//	@Description	Store an image with optional tags (comma-separated "tags" form field). Bytes are written to the storage backend before metadata, so a failed upload never leaves a dangling record.
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			file	formData	file	true	"Image file"
//	@Param			tags	formData	string	false	"Comma-separated tag names"
//	@Success		201		{object}	response.Envelope{data=Record}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		415		{object}	response.Envelope
//	@Router			/media [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// One extra KiB of headroom for the multipart framing itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1024)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		response.PayloadTooLarge(w, "upload too large or malformed multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "unreadable file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	var creatorID *int64
	if caller := auth.CallerFrom(r.Context()); caller != nil {
		creatorID = &caller.ID
	}

	rec, err := h.svc.Upload(r.Context(), data, header.Filename, contentType, parseTagList(r.FormValue("tags")), creatorID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.Created(w, rec)
}

// Get godoc
//
//	@Summary		Download image
//	@Description	Return the image bytes with caching headers, or 304 if the client's validators still hold. If-None-Match takes precedence over If-Modified-Since. Accepts an API key, a signed URL (signature+expires), or an access token — any one suffices.
//	@Tags			media
//	@Produce		image/*
//	@Param			id			path	int		true	"Record ID"
//	@Param			signature	query	string	false	"Signed-URL signature"
//	@Param			expires		query	int		false	"Signed-URL expiry (unix seconds)"
//	@Param			token		query	string	false	"Access token"
//	@Success		200	{file}		binary
//	@Success		304	{string}	string	"Not Modified"
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		503	{object}	response.Envelope
//	@Router			/media/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	if !h.authorizeRead(w, r, id) {
		return
	}

	rec, data, err := h.svc.Retrieve(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	fingerprint := cache.Fingerprint(data)
	h.validator.WriteValidators(w, fingerprint)

	if h.validator.NotModified(r, fingerprint, rec.CreatedAt) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.validator.WriteContentHeaders(w, rec.Filename, rec.ContentType, rec.CreatedAt)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetMeta godoc
//
//	@Summary		Get image metadata
//	@Description	Return a record's metadata. Same three-way authorization as the download endpoint.
//	@Tags			media
//	@Produce		json
//	@Param			id			path	int		true	"Record ID"
//	@Param			signature	query	string	false	"Signed-URL signature"
//	@Param			expires		query	int		false	"Signed-URL expiry (unix seconds)"
//	@Param			token		query	string	false	"Access token"
//	@Success		200	{object}	response.Envelope{data=Record}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/media/{id}/meta [get]
func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	if !h.authorizeRead(w, r, id) {
		return
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.OK(w, rec)
}

// Delete godoc
//
//	@Summary		Delete image
//	@Description	Remove a record and its bytes. Bytes are removed first; if that fails the record is kept so it never points at deleted content.
//	@Tags			media
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			id	path		int	true	"Record ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		503	{object}	response.Envelope
//	@Router			/media/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.OK(w, map[string]bool{"deleted": true})
}

// Search godoc
//
//	@Summary		Search images by tags
//	@Description	Boolean tag search: records must carry all required tags and none of the forbidden ones; optional tags only influence ranking. Results are ordered by descending relevance, ties by ascending id.
//	@Tags			media
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			required	query	string	false	"Comma-separated required tags"
//	@Param			optional	query	string	false	"Comma-separated optional tags"
//	@Param			forbidden	query	string	false	"Comma-separated forbidden tags"
//	@Success		200	{object}	response.Envelope{data=[]Record}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := h.svc.Search(r.Context(),
		parseTagList(strings.Join(q["required"], ",")),
		parseTagList(strings.Join(q["optional"], ",")),
		parseTagList(strings.Join(q["forbidden"], ",")),
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.OK(w, records)
}

// recordID parses the {id} path parameter, writing a 400 on failure.
func (h *Handler) recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid record id")
		return 0, false
	}
	return id, true
}

// authorizeRead applies the OR-composed read authorization: bearer API key,
// signed URL, or access token. Writes a 401 and returns false when all fail.
func (h *Handler) authorizeRead(w http.ResponseWriter, r *http.Request, recordID int64) bool {
	if !h.securityEnabled {
		return true
	}

	q := r.URL.Query()
	expires, _ := strconv.ParseInt(q.Get("expires"), 10, 64)
	proof := auth.ReadProof{
		RawKey:    bearerToken(r),
		Signature: q.Get("signature"),
		Expires:   expires,
		Token:     q.Get("token"),
	}

	if err := h.authSvc.AuthorizeRead(r.Context(), recordID, proof); err != nil {
		response.Unauthorized(w, "valid api key, signed url, or access token required")
		return false
	}
	return true
}

// writeServiceError maps service-layer errors onto HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "media record not found")
	case errors.Is(err, ErrUnsupportedType):
		response.UnsupportedMediaType(w, err.Error())
	case errors.Is(err, ErrTooLarge):
		response.PayloadTooLarge(w, err.Error())
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, storage.ErrTransient):
		response.ServiceUnavailable(w, "storage backend unavailable")
	default:
		response.InternalError(w)
	}
}

// bearerToken extracts the raw credential from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// parseTagList splits a comma-separated tag list, dropping empties. Dedup and
// normalization happen downstream.
func parseTagList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
