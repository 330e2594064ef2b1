package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/whisper/comments/internal/comment"
)

// errorInfo is how a comment error code surfaces over HTTP. Clients render
// the translation key; the server never sends prose.
type errorInfo struct {
	status int
	key    string
}

var errorTable = map[comment.Code]errorInfo{
	comment.CodeNotFound:          {http.StatusNotFound, "COMMENT_NOT_FOUND"},
	comment.CodeForbidden:         {http.StatusForbidden, "NOT_AUTHORIZED"},
	comment.CodeNoOpEdit:          {http.StatusUnprocessableEntity, "EDIT_NO_CHANGE"},
	comment.CodeConflict:          {http.StatusConflict, "EDIT_CONFLICT"},
	comment.CodeUnavailable:       {http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	comment.CodeEditWindowExpired: {http.StatusForbidden, "EDIT_WINDOW_ENDED"},
	comment.CodeInvalidBody:       {http.StatusBadRequest, "COMMENT_BODY_INVALID"},
	comment.CodeInvalidRequest:    {http.StatusBadRequest, "INVALID_REQUEST"},
}

func lookupError(code comment.Code) errorInfo {
	if info, ok := errorTable[code]; ok {
		return info
	}
	return errorInfo{http.StatusInternalServerError, "INTERNAL_ERROR"}
}

// apiError is one entry of an error response.
type apiError struct {
	Code           comment.Code `json:"code"`
	TranslationKey string       `json:"translation_key"`
}

func toAPIErrors(entries []comment.ErrorEntry) []apiError {
	out := make([]apiError, 0, len(entries))
	for _, e := range entries {
		out = append(out, apiError{Code: e.Code, TranslationKey: lookupError(e.Code).key})
	}
	return out
}

// abortWithCode writes a single-error response for code.
func abortWithCode(c *gin.Context, code comment.Code) {
	info := lookupError(code)
	c.AbortWithStatusJSON(info.status, gin.H{
		"errors": []apiError{{Code: code, TranslationKey: info.key}},
	})
}

// abortWithError maps err to its code and writes the response.
func abortWithError(c *gin.Context, err error) {
	abortWithCode(c, comment.CodeOf(err))
}
