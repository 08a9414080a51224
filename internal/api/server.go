package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/turbopilot/chunkopt/internal/domain"
	"github.com/turbopilot/chunkopt/internal/logger"
	"github.com/turbopilot/chunkopt/internal/optimizer"
)

// Server handles HTTP requests driving the chunk optimizer.
type Server struct {
	Router      *gin.Engine
	oracle      optimizer.MetricOracle
	constructor optimizer.ChunkConstructor
	params      optimizer.Params
	port        string
}

// NewServer creates a new API server. oracle and constructor are the
// collaborators the optimizer needs to answer comparison queries and
// build merged chunks; params are the tuned thresholds to run with.
func NewServer(port string, oracle optimizer.MetricOracle, constructor optimizer.ChunkConstructor, params optimizer.Params) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Inbound request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	})

	s := &Server{
		Router:      router,
		oracle:      oracle,
		constructor: constructor,
		params:      params,
		port:        port,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.handleHealth)
	s.Router.POST("/optimize", s.handleOptimize)
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	logger.Info("Starting API server", "port", s.port)
	return s.Router.Run(":" + s.port)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// chunkDTO is the wire representation of a domain.Chunk. CommonParent is
// a pointer so a request can distinguish "no common parent" (nil) from
// "common parent is the root" (an empty, non-nil slice).
type chunkDTO struct {
	ID               string    `json:"id"`
	Context          string    `json:"context"`
	MainEntries      []string  `json:"main_entries"`
	OmitEntries      []string  `json:"omit_entries,omitempty"`
	AvailableModules []string  `json:"available_modules,omitempty"`
	CommonParent     *[]string `json:"common_parent,omitempty"`
}

type optimizeRequest struct {
	Chunks []chunkDTO `json:"chunks" binding:"required"`
}

type optimizeResponse struct {
	Chunks []chunkDTO `json:"chunks"`
}

// @Summary      Optimize a chunk set
// @Description  Run the ECMAScript chunk optimizer over a submitted set of chunks and return the merged result
// @Accept       json
// @Produce      json
// @Param        request  body      optimizeRequest  true  "Chunks to optimize"
// @Success      200      {object}  optimizeResponse
// @Failure      400      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /optimize [post]
func (s *Server) handleOptimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, log := logger.NewInvocation(c.Request.Context(), "route", "/optimize")

	chunks := make([]*domain.Chunk, 0, len(req.Chunks))
	for _, dto := range req.Chunks {
		chunks = append(chunks, dto.toDomain())
	}

	optimized, err := optimizer.OptimizeEcmascriptChunks(ctx, s.oracle, s.constructor, s.params, chunks)
	if err != nil {
		log.Error("Optimization failed", "error", err, "input_count", len(chunks))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to optimize chunks"})
		return
	}

	log.Info("Optimized chunk set", "input_count", len(chunks), "output_count", len(optimized))

	resp := optimizeResponse{Chunks: make([]chunkDTO, 0, len(optimized))}
	for _, chunk := range optimized {
		resp.Chunks = append(resp.Chunks, fromDomain(chunk))
	}
	c.JSON(http.StatusOK, resp)
}

func (dto chunkDTO) toDomain() *domain.Chunk {
	main := make([]domain.ModuleID, len(dto.MainEntries))
	for i, id := range dto.MainEntries {
		main[i] = domain.ModuleID(id)
	}
	var omit []domain.ModuleID
	for _, id := range dto.OmitEntries {
		omit = append(omit, domain.ModuleID(id))
	}
	var available []domain.ModuleID
	for _, id := range dto.AvailableModules {
		available = append(available, domain.ModuleID(id))
	}

	commonParent := domain.AbsentModulePath()
	if dto.CommonParent != nil {
		commonParent = domain.NewModulePath(*dto.CommonParent...)
	}

	return domain.NewChunk(
		dto.ID,
		dto.Context,
		main,
		omit,
		domain.AvailabilityInfo{AvailableModules: available},
		commonParent,
	)
}

func fromDomain(c *domain.Chunk) chunkDTO {
	main := make([]string, len(c.MainEntries()))
	for i, id := range c.MainEntries() {
		main[i] = string(id)
	}
	var omit []string
	for _, id := range c.OmitEntries() {
		omit = append(omit, string(id))
	}
	var available []string
	for _, id := range c.AvailabilityInfo().AvailableModules {
		available = append(available, string(id))
	}

	dto := chunkDTO{
		ID:               c.ID(),
		MainEntries:      main,
		OmitEntries:      omit,
		AvailableModules: available,
	}
	if ctxStr, ok := c.Context().(string); ok {
		dto.Context = ctxStr
	}
	if parent := c.CommonParent(); parent.Present() {
		segments := parent.Segments()
		dto.CommonParent = &segments
	}
	return dto
}
