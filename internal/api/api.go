package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/models"
	"xsolla-tools/internal/services/tasks"
	"xsolla-tools/internal/websocket"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// RunLister reads the run journal. *database.Journal satisfies it.
type RunLister interface {
	RecentRuns(limit int) ([]models.TaskRun, error)
}

type APIHandler struct {
	tasks   *tasks.Service
	journal RunLister
	hub     *websocket.Hub
}

// NewRouter builds the control panel. journal may be nil when the run
// journal is disabled.
func NewRouter(svc *tasks.Service, journal RunLister, hub *websocket.Hub, secret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(), CORSMiddleware())

	handler := &APIHandler{tasks: svc, journal: journal, hub: hub}
	r.GET("/health", handler.Health)
	r.GET("/ws", AuthMiddleware(secret), hub.Handler())

	SetupRoutes(r.Group("/api/v1", AuthMiddleware(secret)), handler)
	return r
}

func SetupRoutes(r *gin.RouterGroup, handler *APIHandler) {
	taskRoutes := r.Group("/tasks")
	{
		taskRoutes.POST("/import", handler.ImportGame)
		taskRoutes.POST("/delete", handler.DeleteSKU)
		taskRoutes.POST("/recalculate", handler.RecalculateBundle)
		taskRoutes.POST("/update-prices", handler.UpdatePrices)
		taskRoutes.POST("/publish", handler.PublishBuild)
		taskRoutes.POST("/keys", handler.GenerateKeys)
		taskRoutes.POST("/qrcode", handler.GenerateQRCode)
		taskRoutes.POST("/export-csv", handler.ExportPricesCSV)
		taskRoutes.POST("/import-csv", handler.ImportPricesCSV)
	}

	r.GET("/runs", handler.GetRuns)
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"journal": h.journal != nil,
		"clients": h.hub.Clients(),
	})
}

func bind[F any](c *gin.Context) (F, bool) {
	var form F
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return form, false
	}
	return form, true
}

func fail(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
}

func (h *APIHandler) ImportGame(c *gin.Context) {
	form, ok := bind[tasks.ImportForm](c)
	if !ok {
		return
	}
	created, err := h.tasks.ImportFromCatalog(c.Request.Context(), form)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *APIHandler) DeleteSKU(c *gin.Context) {
	form, ok := bind[tasks.DeleteForm](c)
	if !ok {
		return
	}
	if err := h.tasks.DeleteSKU(c.Request.Context(), form); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": form.SKU})
}

func (h *APIHandler) RecalculateBundle(c *gin.Context) {
	form, ok := bind[tasks.RecalculateForm](c)
	if !ok {
		return
	}
	result, err := h.tasks.RecalculateBundle(c.Request.Context(), form)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) UpdatePrices(c *gin.Context) {
	form, ok := bind[tasks.UpdatePricesForm](c)
	if !ok {
		return
	}
	prices, err := h.tasks.UpdatePrices(c.Request.Context(), form)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sku": form.SKU, "prices": prices})
}

func (h *APIHandler) PublishBuild(c *gin.Context) {
	form, ok := bind[tasks.PublishForm](c)
	if !ok {
		return
	}
	if err := h.tasks.PublishBuild(c.Request.Context(), form); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": form.GameFolder})
}

func (h *APIHandler) GenerateKeys(c *gin.Context) {
	form, ok := bind[tasks.KeysForm](c)
	if !ok {
		return
	}
	keys, err := h.tasks.GenerateKeys(c.Request.Context(), form)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": form.OutputPath, "count": len(keys)})
}

func (h *APIHandler) GenerateQRCode(c *gin.Context) {
	form, ok := bind[tasks.QRCodeForm](c)
	if !ok {
		return
	}
	link, err := h.tasks.GenerateQRCode(c.Request.Context(), form)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}

func (h *APIHandler) ExportPricesCSV(c *gin.Context) {
	form, ok := bind[tasks.CSVForm](c)
	if !ok {
		return
	}
	rows, err := h.tasks.ExportPricesCSV(c.Request.Context(), form)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": form.Path, "rows": rows})
}

func (h *APIHandler) ImportPricesCSV(c *gin.Context) {
	form, ok := bind[tasks.CSVForm](c)
	if !ok {
		return
	}
	applied, err := h.tasks.ImportPricesCSV(c.Request.Context(), form)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error(), "applied": applied})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": form.Path, "applied": applied})
}

func (h *APIHandler) GetRuns(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run journal is disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRunsLimit)))
	if err != nil || limit <= 0 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := h.journal.RecentRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}
