package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
	"github.com/lucasjlepore/gpx-analyzer/pipeline"
	"github.com/lucasjlepore/gpx-analyzer/track"
	"github.com/sirupsen/logrus"
)

// Server exposes the analysis pipeline over HTTP. Every request runs in its
// own pipeline.Session, so concurrent uploads never share an accumulator.
type Server struct {
	defaults  pipeline.SessionOptions
	groupBy   string
	maxUpload int64
	logger    *logrus.Logger
	engine    *gin.Engine
}

// New builds the router. maxUploadMB bounds each request body.
func New(defaults pipeline.SessionOptions, groupBy string, maxUploadMB int64, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		defaults:  defaults,
		groupBy:   groupBy,
		maxUpload: maxUploadMB << 20,
		logger:    logger,
	}

	router := gin.New()
	router.MaxMultipartMemory = s.maxUpload
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	api := router.Group("/api/v1")
	{
		api.GET("/health", s.health)
		api.POST("/analyze", s.analyze)
		api.POST("/analyze/csv", s.analyzeCSV)
	}
	s.engine = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// analyzeQuery holds per-request overrides of the configured options.
type analyzeQuery struct {
	FTPWatts           *float64 `form:"ftp"`
	LapDistanceKm      *float64 `form:"lap_km"`
	CalorieMethod      string   `form:"calories"`
	CalorieAggregation string   `form:"calorie_aggregation"`
	WeightKg           *float64 `form:"weight_kg"`
	Age                *float64 `form:"age"`
	Sex                string   `form:"sex"`
	GroupBy            string   `form:"group_by"`
	Table              string   `form:"table"`
}

func (q analyzeQuery) apply(opts pipeline.SessionOptions) pipeline.SessionOptions {
	if q.FTPWatts != nil {
		opts.Analysis.FTPWatts = *q.FTPWatts
	}
	if q.LapDistanceKm != nil {
		opts.Analysis.LapDistanceKm = *q.LapDistanceKm
	}
	if q.CalorieMethod != "" {
		opts.CalorieMethod = gpxnotes.CalorieMethod(strings.ToLower(q.CalorieMethod))
	}
	if q.CalorieAggregation != "" {
		opts.CalorieAggregation = track.CalorieAggregation(strings.ToLower(q.CalorieAggregation))
	}
	if q.WeightKg != nil {
		opts.Athlete.WeightKg = *q.WeightKg
	}
	if q.Age != nil {
		opts.Athlete.Age = *q.Age
	}
	if q.Sex != "" {
		opts.Athlete.Sex = gpxnotes.Sex(strings.ToLower(q.Sex))
	}
	return opts
}

type analyzeResponse struct {
	*pipeline.Batch
	Summary  []pipeline.Record `json:"summary"`
	LapRows  []pipeline.Record `json:"lap_rows,omitempty"`
	Buckets  []pipeline.Bucket `json:"buckets"`
	Warnings []string          `json:"warnings,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) analyze(c *gin.Context) {
	q, batch, ok := s.runSession(c)
	if !ok {
		return
	}
	groupBy := q.GroupBy
	if groupBy == "" {
		groupBy = s.groupBy
	}
	buckets, err := pipeline.BuildBuckets(batch.Files, groupBy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var warnings []string
	for _, f := range batch.Files {
		if f.Failed() {
			warnings = append(warnings, fmt.Sprintf("%s: %s", f.Name, f.Error))
		}
	}
	c.JSON(http.StatusOK, analyzeResponse{
		Batch:    batch,
		Summary:  pipeline.SummaryRecords(batch),
		LapRows:  pipeline.LapRecords(batch),
		Buckets:  buckets,
		Warnings: warnings,
	})
}

func (s *Server) analyzeCSV(c *gin.Context) {
	var q analyzeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	table := q.Table
	if table == "" {
		table = "summary"
	}
	if table != "summary" && table != "laps" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown table %q (expected summary|laps)", table)})
		return
	}

	_, batch, ok := s.runSession(c)
	if !ok {
		return
	}
	records := pipeline.SummaryRecords(batch)
	if table == "laps" {
		if len(batch.Files) != 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "laps are only computed for single-file uploads"})
			return
		}
		records = pipeline.LapRecords(batch)
		if len(records) == 0 {
			msg := "no laps could be computed"
			if f := batch.Files[0]; f.Failed() {
				msg = fmt.Sprintf("%s: %s", f.Name, f.Error)
			}
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
			return
		}
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", pipeline.MarshalCSV(records))
}

// runSession binds the query, reads the uploaded files and analyses them. It
// writes the error response itself and reports ok=false on failure.
func (s *Server) runSession(c *gin.Context) (analyzeQuery, *pipeline.Batch, bool) {
	var q analyzeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return q, nil, false
	}
	if _, err := pipeline.ParseGroupBy(q.GroupBy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return q, nil, false
	}
	opts := q.apply(s.defaults)
	if err := opts.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return q, nil, false
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("read upload: %v", err)})
		return q, nil, false
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required in field \"files\""})
		return q, nil, false
	}
	inputs := make([]pipeline.Input, 0, len(headers))
	for _, fh := range headers {
		inputs = append(inputs, uploadInput(fh))
	}

	session := pipeline.NewSession(opts, s.logger)
	batch, err := session.Analyze(c.Request.Context(), inputs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return q, nil, false
	}
	return q, batch, true
}

func uploadInput(fh *multipart.FileHeader) pipeline.Input {
	return pipeline.Input{
		Name: fh.Filename,
		Load: func() ([]byte, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return io.ReadAll(f)
		},
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := s.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Info("request handled")
	}
}
