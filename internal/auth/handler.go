package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mediabin/service/internal/response"
)

// Handler holds HTTP handlers for key, token, and signed-URL management.
type Handler struct {
	svc *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createKeyRequest struct {
	Name        string   `json:"name"        example:"ci-uploader"`
	Permissions []string `json:"permissions" example:"UPLOAD,SEARCH"`
}

type createKeyData struct {
	Key    string  `json:"key" example:"mb_32af1c09d4e8..."`
	ApiKey *ApiKey `json:"apiKey"`
}

type signedURLRequest struct {
	ExpiresIn int64 `json:"expiresIn" example:"3600"`
}

type signedURLData struct {
	Signature string `json:"signature" example:"9c2f4a..."`
	Expires   int64  `json:"expires"   example:"1767225600"`
	URL       string `json:"url"       example:"/api/v1/media/42?signature=9c2f4a...&expires=1767225600"`
}

// CreateKey godoc
//
//	@Summary		Create API key
//	@Description	Create a new API key with the given permissions. The raw key is returned once and never again; only its hash is stored.
//	@Tags			keys
//	@Accept			json
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			request	body		createKeyRequest	true	"Key name and permissions"
//	@Success		201		{object}	response.Envelope{data=createKeyData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Router			/keys [post]
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	perms := make([]Permission, len(req.Permissions))
	for i, p := range req.Permissions {
		perms[i] = Permission(p)
	}

	raw, key, err := h.svc.CreateKey(r.Context(), req.Name, perms)
	if errors.Is(err, ErrInvalidInput) {
		response.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, createKeyData{Key: raw, ApiKey: key})
}

// ListKeys godoc
//
//	@Summary		List API keys
//	@Description	List all API keys, active and revoked. Raw key material is never included.
//	@Tags			keys
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Success		200	{object}	response.Envelope{data=[]ApiKey}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Router			/keys [get]
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.ListKeys(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, keys)
}

// RevokeKey godoc
//
//	@Summary		Revoke API key
//	@Description	Soft-revoke an API key. Requests authenticating with it fail from now on.
//	@Tags			keys
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			id	path		int	true	"Key ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/keys/{id} [delete]
func (h *Handler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid key id")
		return
	}

	if err := h.svc.RevokeKey(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "key not found or already revoked")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]bool{"revoked": true})
}

// SignURL godoc
//
//	@Summary		Generate signed URL
//	@Description	Issue a time-limited signature granting read access to one record. Requested expiry is clamped to the server maximum; omit expiresIn for the default.
//	@Tags			media
//	@Accept			json
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			id		path		int					true	"Record ID"
//	@Param			request	body		signedURLRequest	false	"Expiry in seconds"
//	@Success		201		{object}	response.Envelope{data=signedURLData}
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/media/{id}/signed-url [post]
func (h *Handler) SignURL(w http.ResponseWriter, r *http.Request) {
	recordID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid record id")
		return
	}

	var req signedURLRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
	}

	sig, expires, err := h.svc.SignURL(r.Context(), recordID, time.Duration(req.ExpiresIn)*time.Second)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "record not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, signedURLData{
		Signature: sig,
		Expires:   expires,
		URL:       "/api/v1/media/" + strconv.FormatInt(recordID, 10) +
			"?signature=" + sig + "&expires=" + strconv.FormatInt(expires, 10),
	})
}

// IssueToken godoc
//
//	@Summary		Issue access token
//	@Description	Create a permanent, revocable read token bound to one record. The token never expires; revocation is the only way to invalidate it.
//	@Tags			tokens
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			id	path		int	true	"Record ID"
//	@Success		201	{object}	response.Envelope{data=AccessToken}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/media/{id}/tokens [post]
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	recordID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid record id")
		return
	}

	var creatorID *int64
	if caller := CallerFrom(r.Context()); caller != nil {
		creatorID = &caller.ID
	}

	token, err := h.svc.IssueToken(r.Context(), recordID, creatorID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "record not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, token)
}

// ListTokens godoc
//
//	@Summary		List access tokens
//	@Description	List every token bound to a record, including revoked ones.
//	@Tags			tokens
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			id	path		int	true	"Record ID"
//	@Success		200	{object}	response.Envelope{data=[]AccessToken}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Router			/media/{id}/tokens [get]
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	recordID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid record id")
		return
	}

	tokens, err := h.svc.ListTokens(r.Context(), recordID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, tokens)
}

// RevokeToken godoc
//
//	@Summary		Revoke access token
//	@Description	Deactivate a token. All subsequent validations for it fail; other tokens on the same record stay valid.
//	@Tags			tokens
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			id	path		int	true	"Token ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/tokens/{id} [delete]
func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid token id")
		return
	}

	if err := h.svc.RevokeToken(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "token not found or already revoked")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]bool{"revoked": true})
}
