package api

import (
	"net/http"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/gin-gonic/gin"
)

func (rs *RestServer) handleGetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Каталог",
		Data:    rs.svc.Catalog(c.Request.Context()),
	})
}

// handlePutCatalog заменяет каталог целиком; ошибка в любой записи отклоняет весь запрос
func (rs *RestServer) handlePutCatalog(c *gin.Context) {
	var records []blocks.Record
	if err := c.ShouldBindJSON(&records); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}
	if err := rs.svc.LoadCatalog(c.Request.Context(), records); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Каталог загружен",
		Data:    rs.svc.Types(c.Request.Context()),
	})
}

func (rs *RestServer) handleResetCatalog(c *gin.Context) {
	rs.svc.Reset(c.Request.Context())
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Каталог сброшен",
		Data:    rs.svc.Types(c.Request.Context()),
	})
}

func (rs *RestServer) handleListSnapshots(c *gin.Context) {
	infos, err := rs.svc.ListSnapshots(c.Request.Context())
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Снимки",
		Data:    infos,
	})
}

func (rs *RestServer) handleSaveSnapshot(c *gin.Context) {
	info, err := rs.svc.SaveSnapshot(c.Request.Context(), c.Param("name"))
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Снимок сохранён",
		Data:    info,
	})
}

func (rs *RestServer) handleLoadSnapshot(c *gin.Context) {
	if err := rs.svc.LoadSnapshot(c.Request.Context(), c.Param("name")); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Снимок загружен",
		Data:    rs.svc.Types(c.Request.Context()),
	})
}

func (rs *RestServer) handleDeleteSnapshot(c *gin.Context) {
	if err := rs.svc.DeleteSnapshot(c.Request.Context(), c.Param("name")); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Снимок удалён",
	})
}
