package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/editor"
	"github.com/gin-gonic/gin"
)

// ScriptBody тело GET/PUT /api/script
type ScriptBody struct {
	Script string `json:"script"`
}

// handleGetAtlas возвращает размеры атласов и раскладку слотов, без пикселей
func (rs *RestServer) handleGetAtlas(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Атласы",
		Data:    rs.svc.Atlas(c.Request.Context()),
	})
}

// handleGetAtlasPNG отдаёт атлас материала в PNG. ETag меняется с каждой пересборкой.
func (rs *RestServer) handleGetAtlasPNG(c *gin.Context) {
	m, err := blocks.ParseMaterial(c.Param("material"))
	if err != nil {
		rs.fail(c, err)
		return
	}

	data, generation, err := rs.svc.AtlasPNG(c.Request.Context(), m)
	if err != nil {
		rs.fail(c, err)
		return
	}

	etag := fmt.Sprintf(`"%d-%s"`, generation, m)
	c.Header("ETag", etag)
	c.Header("X-Atlas-Generation", strconv.FormatUint(generation, 10))
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (rs *RestServer) handleGetLighting(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Освещение",
		Data:    rs.svc.Lighting(c.Request.Context()),
	})
}

// handlePutLighting заменяет освещение целиком; в ответе значения после приведения к [0, 1]
func (rs *RestServer) handlePutLighting(c *gin.Context) {
	var l editor.Lighting
	if err := c.ShouldBindJSON(&l); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Освещение обновлено",
		Data:    rs.svc.SetLighting(c.Request.Context(), l),
	})
}

func (rs *RestServer) handleGetScript(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Скрипт",
		Data:    ScriptBody{Script: rs.svc.Script(c.Request.Context())},
	})
}

func (rs *RestServer) handlePutScript(c *gin.Context) {
	var body ScriptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}
	rs.svc.SetScript(c.Request.Context(), body.Script)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Скрипт обновлён",
		Data:    body,
	})
}
