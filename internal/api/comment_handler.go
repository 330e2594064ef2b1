package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whisper/comments/internal/comment"
	"github.com/whisper/comments/internal/moderation"
)

// CommentHandler handles comment and settings endpoints
type CommentHandler struct {
	services *Services
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *Services, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

type publishBody struct {
	AssetID string `json:"asset_id" binding:"required"`
	Body    string `json:"body"`
}

type editBody struct {
	Body string `json:"body"`
}

type statusBody struct {
	Status moderation.Status `json:"status" binding:"required"`
}

// actingUser returns the authenticated user id or aborts with 401.
func actingUser(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(UserHeader))
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"errors": []apiError{{Code: comment.CodeForbidden, TranslationKey: "NOT_AUTHENTICATED"}},
		})
		return "", false
	}
	return id, true
}

// Publish handles POST /v1/comments
func (h *CommentHandler) Publish(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}

	var body publishBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithCode(c, comment.CodeInvalidRequest)
		return
	}

	created, err := h.services.Comments.Publish(c.Request.Context(), comment.PublishRequest{
		AssetID:  body.AssetID,
		AuthorID: user,
		Body:     body.Body,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": created, "errors": []apiError{}})
}

// Edit handles PATCH /v1/comments/:id
func (h *CommentHandler) Edit(c *gin.Context) {
	user, ok := actingUser(c)
	if !ok {
		return
	}

	var body editBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithCode(c, comment.CodeInvalidRequest)
		return
	}

	res := h.services.Comments.EditComment(c.Request.Context(), comment.EditRequest{
		CommentID:    c.Param("id"),
		ActingUserID: user,
		NewBody:      body.Body,
	})
	if !res.OK() {
		status := lookupError(res.Errors[0].Code).status
		// The previous comment is only shown back to its author.
		var prev *comment.Comment
		if res.Comment != nil && res.Comment.AuthorID == user {
			prev = res.Comment
		}
		c.JSON(status, gin.H{"comment": prev, "errors": toAPIErrors(res.Errors)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": res.Comment, "errors": []apiError{}})
}

// SetStatus handles PUT /v1/comments/:id/status
func (h *CommentHandler) SetStatus(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}

	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithCode(c, comment.CodeInvalidRequest)
		return
	}

	updated, err := h.services.Comments.SetStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": updated, "errors": []apiError{}})
}

// GetSettings handles GET /v1/settings/moderation
func (h *CommentHandler) GetSettings(c *gin.Context) {
	s, err := h.services.Settings.Load(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load settings")
		abortWithCode(c, comment.CodeUnavailable)
		return
	}
	c.JSON(http.StatusOK, s)
}

// PutSettings handles PUT /v1/settings/moderation
func (h *CommentHandler) PutSettings(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}

	var s moderation.Settings
	if err := c.ShouldBindJSON(&s); err != nil {
		abortWithCode(c, comment.CodeInvalidRequest)
		return
	}
	if err := s.Validate(); err != nil {
		abortWithCode(c, comment.CodeInvalidRequest)
		return
	}
	if err := h.services.Settings.Update(c.Request.Context(), s); err != nil {
		h.log.Error().Err(err).Msg("Failed to update settings")
		abortWithCode(c, comment.CodeUnavailable)
		return
	}
	c.JSON(http.StatusOK, s)
}
