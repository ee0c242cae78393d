package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"juris-backend/internal/analysis"
	"juris-backend/internal/document"
	"juris-backend/internal/ledger"
	"juris-backend/internal/server/respond"
)

// Handler wires HTTP handlers to the analysis engine and the ledger.
type Handler struct {
	Engine         *analysis.Engine
	Ledger         ledger.Store
	MaxUploadBytes int64

	// Reported by the health endpoint.
	MockMode      bool
	LedgerBackend string
}

// NewHandler constructs a Handler.
func NewHandler(engine *analysis.Engine, store ledger.Store, maxUploadBytes int64) *Handler {
	return &Handler{Engine: engine, Ledger: store, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze/text", h.analyzeText)
	rg.POST("/analyze/file", h.analyzeFile)
	rg.GET("/stats", h.stats)
	rg.GET("/health", h.health)
}

type optionsDTO struct {
	UseEvaluation      *bool `json:"use_evaluation"`
	UseImprovement     *bool `json:"use_improvement"`
	UseBatchProcessing *bool `json:"use_batch_processing"`
	BatchSize          int   `json:"batch_size"`
	IgnoreCache        bool  `json:"ignore_cache"`
}

func (o *optionsDTO) toOptions() analysis.Options {
	if o == nil {
		return analysis.Options{}
	}
	return analysis.Options{
		UseEvaluation:      o.UseEvaluation,
		UseImprovement:     o.UseImprovement,
		UseBatchProcessing: o.UseBatchProcessing,
		BatchSize:          o.BatchSize,
		IgnoreCache:        o.IgnoreCache,
	}
}

type analyzeTextRequest struct {
	Text    string      `json:"text" binding:"required"`
	Options *optionsDTO `json:"options"`
}

func (h *Handler) analyzeText(c *gin.Context) {
	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
		return
	}

	clauses := document.SplitClauses(req.Text)
	h.runAnalysis(c, clauses, req.Options.toOptions())
}

func (h *Handler) analyzeFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if h.MaxUploadBytes > 0 && fileHeader.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds the upload limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to read upload", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to read upload", nil)
		return
	}

	text, err := document.ExtractText(data, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, document.ErrUnsupportedFormat) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unsupported file format", nil)
			return
		}
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_error", "failed to extract document text", nil)
		return
	}

	var opts analysis.Options
	if raw := c.PostForm("options"); raw != "" {
		var dto optionsDTO
		if err := json.Unmarshal([]byte(raw), &dto); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "options must be a JSON object", nil)
			return
		}
		opts = dto.toOptions()
	}

	clauses := document.SplitClauses(text)
	h.runAnalysis(c, clauses, opts)
}

func (h *Handler) runAnalysis(c *gin.Context, clauses []analysis.Clause, opts analysis.Options) {
	run := h.Engine.AnalyzeContract(c.Request.Context(), clauses, opts)
	c.Set("runId", run.ID)

	if run.Status == analysis.StatusError {
		respond.Error(c, statusForErrorCode(run.ErrorCode), run.ErrorCode, run.Error, run)
		return
	}
	respond.OK(c, run)
}

func (h *Handler) health(c *gin.Context) {
	respond.OK(c, gin.H{
		"ok":             true,
		"mock_mode":      h.MockMode,
		"ledger_backend": h.LedgerBackend,
	})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Ledger.Statistics(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to compute statistics", nil)
		return
	}
	respond.OK(c, stats)
}

func statusForErrorCode(code string) int {
	switch code {
	case analysis.ErrorCodeValidation:
		return http.StatusBadRequest
	case analysis.ErrorCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
