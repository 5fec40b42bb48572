package api

import (
	"net/http"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/editor"
	"github.com/gin-gonic/gin"
)

// UpdateRequest тело PATCH /api/types/:index
type UpdateRequest struct {
	Field editor.Field `json:"field" binding:"required"`
	Value interface{}  `json:"value"`
}

// TextureRequest тело PUT текстуры: base64 1024 байт RGBA
type TextureRequest struct {
	Bitmap string `json:"bitmap" binding:"required"`
}

// GenerateRequest тело POST .../generate; пустой генератор = генератор редактора
type GenerateRequest struct {
	Generator string `json:"generator"`
}

// TextureResponse текстура одной грани
type TextureResponse struct {
	Index  int    `json:"index"`
	Face   string `json:"face"`
	Bitmap string `json:"bitmap"`
}

func (rs *RestServer) handleListTypes(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Типы блоков",
		Data:    rs.svc.Types(c.Request.Context()),
	})
}

func (rs *RestServer) handleCreateType(c *gin.Context) {
	var req editor.Partial
	if err := c.ShouldBindJSON(&req); err != nil && !isEmptyBody(err) {
		badRequest(c, "Неверный формат запроса")
		return
	}

	t, err := rs.svc.CreateType(c.Request.Context(), req)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Тип блока создан",
		Data:    t,
	})
}

func (rs *RestServer) handleCloneType(c *gin.Context) {
	index, ok := pathIndex(c)
	if !ok {
		return
	}
	t, err := rs.svc.CloneType(c.Request.Context(), index)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Тип блока склонирован",
		Data:    t,
	})
}

func (rs *RestServer) handleRemoveType(c *gin.Context) {
	index, ok := pathIndex(c)
	if !ok {
		return
	}
	if err := rs.svc.RemoveType(c.Request.Context(), index); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Тип блока удалён",
	})
}

func (rs *RestServer) handleUpdateType(c *gin.Context) {
	index, ok := pathIndex(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}

	t, err := rs.svc.UpdateType(c.Request.Context(), index, req.Field, req.Value)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Тип блока обновлён",
		Data:    t,
	})
}

// textureParams разбирает :index и :face; при ошибке сам отвечает
func (rs *RestServer) textureParams(c *gin.Context) (int, blocks.Face, bool) {
	index, ok := pathIndex(c)
	if !ok {
		return 0, 0, false
	}
	face, err := blocks.ParseFace(c.Param("face"))
	if err != nil {
		rs.fail(c, err)
		return 0, 0, false
	}
	return index, face, true
}

func (rs *RestServer) handleGetTexture(c *gin.Context) {
	index, face, ok := rs.textureParams(c)
	if !ok {
		return
	}
	bmp, err := rs.svc.Bitmap(c.Request.Context(), index, face)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Текстура",
		Data:    TextureResponse{Index: index, Face: face.String(), Bitmap: blocks.EncodeBitmap(bmp)},
	})
}

func (rs *RestServer) handlePutTexture(c *gin.Context) {
	index, face, ok := rs.textureParams(c)
	if !ok {
		return
	}
	var req TextureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}
	bmp, err := blocks.DecodeBitmap(req.Bitmap)
	if err != nil {
		rs.fail(c, err)
		return
	}

	if err := rs.svc.SetBitmap(c.Request.Context(), index, face, bmp); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Текстура обновлена",
		Data:    TextureResponse{Index: index, Face: face.String(), Bitmap: req.Bitmap},
	})
}

func (rs *RestServer) handleGenerateTexture(c *gin.Context) {
	index, face, ok := rs.textureParams(c)
	if !ok {
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !isEmptyBody(err) {
		badRequest(c, "Неверный формат запроса")
		return
	}

	bmp, err := rs.svc.Regenerate(c.Request.Context(), index, face, req.Generator)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Текстура сгенерирована",
		Data:    TextureResponse{Index: index, Face: face.String(), Bitmap: blocks.EncodeBitmap(bmp)},
	})
}
