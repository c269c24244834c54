package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/core"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
	"github.com/joseph-ayodele/po-extractor/internal/export"
	"github.com/joseph-ayodele/po-extractor/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// RouterConfig collects what the HTTP surface needs. Runs and Exporter are
// optional; their routes answer 404 and 406 when absent.
type RouterConfig struct {
	Uploader   Uploader
	Runs       repository.RunRepository
	Exporter   *export.Service
	CORSOrigin string
	Logger     *slog.Logger
}

type handler struct {
	uploader Uploader
	runs     repository.RunRepository
	exporter *export.Service
	logger   *slog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{uploader: cfg.Uploader, runs: cfg.Runs, exporter: cfg.Exporter, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.MaxMultipartMemory = MaxUploadBytes

	origins := splitOrigins(cfg.CORSOrigin)
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))

	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.POST("/extract-invoice", h.extractInvoice)
	router.GET("/runs", h.listRuns)
	router.GET("/runs/:id", h.getRun)
	return router
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, rid := common.EnsureRequestID(c.Request.Context())
		if hdr := c.GetHeader("X-Request-ID"); hdr != "" {
			rid = hdr
			ctx = common.WithRequestID(ctx, hdr)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", rid)
		c.Next()
		logger.Info("http.request",
			"req_id", rid,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (h *handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "PO extraction API running", "version": "1.0"})
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "po-extractor"})
}

// extractInvoice accepts a multipart upload in field "file" with optional
// client_name, mapping_text, expected_items and strict fields. Pass
// format=xlsx to receive a workbook instead of JSON.
func (h *handler) extractInvoice(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", errors.New("multipart field \"file\" is required"))
		return
	}

	opts := core.Options{
		ClientName:  strings.TrimSpace(c.PostForm("client_name")),
		MappingText: c.PostForm("mapping_text"),
	}
	if raw := strings.TrimSpace(c.PostForm("expected_items")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_INPUT", errors.New("expected_items must be a non-negative integer"))
			return
		}
		opts.ExpectedItems = &n
	}
	if raw := strings.TrimSpace(c.PostForm("strict")); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_INPUT", errors.New("strict must be a boolean"))
			return
		}
		opts.Strict = strict
	}
	wantXLSX := strings.EqualFold(c.Query("format"), "xlsx")
	if wantXLSX && h.exporter == nil {
		RespondError(c, http.StatusNotAcceptable, "EXPORT_DISABLED", errors.New("xlsx export is not enabled"))
		return
	}

	src, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
		return
	}
	defer func() { _ = src.Close() }()

	path, cleanup, err := stageUpload(src, fh.Filename)
	defer cleanup()
	if err != nil {
		status, code := httpStatus(err)
		RespondError(c, status, code, err)
		return
	}

	ctx := c.Request.Context()
	res, err := h.uploader.ProcessUpload(ctx, path, fh.Filename, opts)
	if err != nil {
		status, code := httpStatus(err)
		h.logger.Error("http.extract.failed", "req_id", common.RequestIDFromContext(ctx),
			"filename", fh.Filename, "status", status, "error", err)
		RespondError(c, status, code, err)
		return
	}

	if wantXLSX {
		h.writeXLSX(c, fh.Filename, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) writeXLSX(c *gin.Context, filename string, res *entity.ExtractionResult) {
	data, err := h.exporter.ResultXLSX(c.Request.Context(), res)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "EXPORT_FAILED", err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+filename+".xlsx\"")
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *handler) listRuns(c *gin.Context) {
	if h.runs == nil {
		RespondError(c, http.StatusNotFound, "NOT_FOUND", errors.New("run history is not enabled"))
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_INPUT", errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := h.runs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		status, code := httpStatus(err)
		RespondError(c, status, code, err)
		return
	}
	if runs == nil {
		runs = []entity.ExtractionRun{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *handler) getRun(c *gin.Context) {
	if h.runs == nil {
		RespondError(c, http.StatusNotFound, "NOT_FOUND", errors.New("run history is not enabled"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", errors.New("run id must be a UUID"))
		return
	}
	run, err := h.runs.Get(c.Request.Context(), id)
	if err != nil {
		status, code := httpStatus(err)
		RespondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, run)
}
