// Package server exposes image analysis over HTTP: upload an image, get its
// description back. It is the web front-end counterpart of the CLI.
package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/menta2k/image-describer/internal/config"
	"github.com/menta2k/image-describer/internal/metrics"
	"github.com/menta2k/image-describer/pkg/chat"
	"github.com/menta2k/image-describer/pkg/describer"
)

// Server holds the HTTP handlers around a configured describer.
type Server struct {
	analyzer *describer.Describer
	cfg      *config.Config
	info     map[string]string
}

// New creates a server around the given describer.
func New(analyzer *describer.Describer, cfg *config.Config, info map[string]string) *Server {
	return &Server{analyzer: analyzer, cfg: cfg, info: info}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	metrics.Register()

	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = s.cfg.MaxUploadSize

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/describe", s.handleDescribe)
		api.POST("/describe/batch", s.handleDescribeBatch)
		api.GET("/info", s.handleInfo)
	}

	return router
}

// DescribeResponse is the JSON reply for a single analysis.
type DescribeResponse struct {
	Filename    string  `json:"filename"`
	Description string  `json:"description"`
	ElapsedSec  float64 `json:"elapsed_sec"`
}

// ErrorResponse is the JSON reply for a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.info)
}

func (s *Server) handleDescribe(c *gin.Context) {
	start := time.Now()
	metrics.AnalyzeInFlight.Inc()
	defer metrics.AnalyzeInFlight.Dec()

	fileHeader, err := c.FormFile("image")
	if err != nil {
		metrics.AnalyzeTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing 'image' form file"})
		return
	}

	data, err := readUpload(fileHeader, s.cfg.MaxUploadSize)
	if err != nil {
		metrics.AnalyzeTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	prompts := chat.PromptPair{
		System: c.PostForm("system_prompt"),
		User:   c.PostForm("prompt"),
	}

	description, err := s.analyzer.Describe(c.Request.Context(), describer.Request{
		Source:  describer.FromBytes(fileHeader.Filename, data),
		Prompts: prompts,
	})
	elapsed := time.Since(start)
	if err != nil {
		log.WithField("image", fileHeader.Filename).Errorf("analysis failed: %v", err)
		metrics.AnalyzeTotal.WithLabelValues("error").Inc()
		metrics.AnalyzeDurationSeconds.WithLabelValues("error").Observe(elapsed.Seconds())
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	metrics.AnalyzeTotal.WithLabelValues("ok").Inc()
	metrics.AnalyzeDurationSeconds.WithLabelValues("ok").Observe(elapsed.Seconds())
	c.JSON(http.StatusOK, DescribeResponse{
		Filename:    fileHeader.Filename,
		Description: description,
		ElapsedSec:  elapsed.Seconds(),
	})
}

func (s *Server) handleDescribeBatch(c *gin.Context) {
	start := time.Now()
	metrics.AnalyzeInFlight.Inc()
	defer metrics.AnalyzeInFlight.Dec()

	form, err := c.MultipartForm()
	if err != nil {
		metrics.AnalyzeTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid multipart form"})
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		metrics.AnalyzeTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing 'images' form files"})
		return
	}

	sources := make([]describer.Source, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh, s.cfg.MaxUploadSize)
		if err != nil {
			metrics.AnalyzeTotal.WithLabelValues("bad_request").Inc()
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		sources = append(sources, describer.FromBytes(fh.Filename, data))
	}

	prompts := chat.PromptPair{
		System: c.PostForm("system_prompt"),
		User:   c.PostForm("prompt"),
	}

	results := s.analyzer.DescribeAll(c.Request.Context(), sources, prompts)
	elapsed := time.Since(start)

	result := "ok"
	for _, r := range results {
		if !r.Success {
			result = "partial"
			break
		}
	}
	metrics.AnalyzeTotal.WithLabelValues(result).Inc()
	metrics.AnalyzeDurationSeconds.WithLabelValues(result).Observe(elapsed.Seconds())

	c.JSON(http.StatusOK, gin.H{
		"results":     results,
		"elapsed_sec": elapsed.Seconds(),
	})
}

func readUpload(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if fh.Size > maxSize {
		return nil, &uploadTooLargeError{name: fh.Filename}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, maxSize))
}

type uploadTooLargeError struct {
	name string
}

func (e *uploadTooLargeError) Error() string {
	return "uploaded file too large: " + e.name
}
