package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whisper/comments/internal/comment"
	"github.com/whisper/comments/internal/featured"
)

// ViewHandler serves the cached per-asset lists
type ViewHandler struct {
	services *Services
	log      zerolog.Logger
}

// NewViewHandler creates a new ViewHandler
func NewViewHandler(services *Services, log zerolog.Logger) *ViewHandler {
	return &ViewHandler{
		services: services,
		log:      log.With().Str("handler", "view").Logger(),
	}
}

// ListFeatured handles GET /v1/assets/:asset_id/featured. Comments by the
// users named in ?ignore= (comma separated) are left out.
func (h *ViewHandler) ListFeatured(c *gin.Context) {
	h.list(c, featured.Featured)
}

// ListPremod handles GET /v1/assets/:asset_id/premod
func (h *ViewHandler) ListPremod(c *gin.Context) {
	h.list(c, featured.PremodQueue)
}

func (h *ViewHandler) list(c *gin.Context, v featured.View) {
	if h.services.Views == nil {
		abortWithCode(c, comment.CodeUnavailable)
		return
	}
	items, err := h.services.Views.List(c.Request.Context(), v, c.Param("asset_id"))
	if err != nil {
		h.log.Error().Err(err).Str("view", v.Name).Msg("Failed to list view")
		abortWithCode(c, comment.CodeUnavailable)
		return
	}
	items = featured.RemoveAuthors(items, ignoredUsers(c)...)
	c.JSON(http.StatusOK, gin.H{"view": v.Name, "items": items})
}

// Feature handles POST /v1/assets/:asset_id/featured/:comment_id
func (h *ViewHandler) Feature(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}
	if h.services.Views == nil {
		abortWithCode(c, comment.CodeUnavailable)
		return
	}

	ctx := c.Request.Context()
	assetID := c.Param("asset_id")

	cm, err := h.services.Loader.Load(ctx, c.Param("comment_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if cm.AssetID != assetID {
		abortWithCode(c, comment.CodeNotFound)
		return
	}
	if !featured.Featured.Admit(cm.Status) {
		abortWithCode(c, comment.CodeInvalidRequest)
		return
	}

	if err := h.services.Views.Add(ctx, featured.Featured, assetID, featured.ItemFromComment(cm)); err != nil {
		h.log.Error().Err(err).Str("comment_id", cm.ID).Msg("Failed to feature comment")
		abortWithCode(c, comment.CodeUnavailable)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unfeature handles DELETE /v1/assets/:asset_id/featured/:comment_id
func (h *ViewHandler) Unfeature(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}
	if h.services.Views == nil {
		abortWithCode(c, comment.CodeUnavailable)
		return
	}

	if err := h.services.Views.Delete(c.Request.Context(), featured.Featured, c.Param("asset_id"), c.Param("comment_id")); err != nil {
		h.log.Error().Err(err).Msg("Failed to unfeature comment")
		abortWithCode(c, comment.CodeUnavailable)
		return
	}
	c.Status(http.StatusNoContent)
}

func ignoredUsers(c *gin.Context) []string {
	var out []string
	for _, id := range strings.Split(c.Query("ignore"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
