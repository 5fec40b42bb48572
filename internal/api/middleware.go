package api

import (
	"errors"
	"net/http"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/editor"
	"github.com/annel0/voxel-editor/internal/service"
	"github.com/annel0/voxel-editor/internal/storage"
	"github.com/gin-gonic/gin"
)

// corsMiddleware разрешает запросы из браузерного интерфейса редактора
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, If-None-Match")
		c.Header("Access-Control-Expose-Headers", "ETag, X-Atlas-Generation, X-Trace-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// errorStatus сопоставляет ошибки пакетов HTTP-статусам
func errorStatus(err error) int {
	switch {
	case errors.Is(err, editor.ErrIndexOutOfRange),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, editor.ErrUnknownField),
		errors.Is(err, editor.ErrFieldValue),
		errors.Is(err, blocks.ErrUnknownModel),
		errors.Is(err, blocks.ErrUnknownFace),
		errors.Is(err, blocks.ErrUnknownMaterial),
		errors.Is(err, blocks.ErrInvalidRecord),
		errors.Is(err, blocks.ErrDecode),
		errors.Is(err, blocks.ErrBitmapSize),
		errors.Is(err, storage.ErrBadName),
		errors.Is(err, service.ErrUnknownGenerator):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrStorageDisabled),
		errors.Is(err, storage.ErrNotReady):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
