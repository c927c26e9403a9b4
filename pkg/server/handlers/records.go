package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/go-chatforge/pkg/dataset"
	"github.com/soundprediction/go-chatforge/pkg/server/dto"
)

// RecordsHandler serves the annotated dataset loaded at startup.
type RecordsHandler struct {
	records []dataset.Record
	byID    map[int]*dataset.Record
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(records []dataset.Record) *RecordsHandler {
	byID := make(map[int]*dataset.Record, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}
	return &RecordsHandler{
		records: records,
		byID:    byID,
	}
}

// List handles GET /records. With ?failed=true only records whose analysis
// exhausted every provider are returned.
func (h *RecordsHandler) List(c *gin.Context) {
	onlyFailed := c.Query("failed") == "true"

	failed := 0
	filtered := make([]dataset.Record, 0, len(h.records))
	for _, rec := range h.records {
		if rec.AnalysisError != "" {
			failed++
		}
		if onlyFailed && rec.AnalysisError == "" {
			continue
		}
		filtered = append(filtered, rec)
	}

	c.JSON(http.StatusOK, dto.RecordsResponse{
		Total:   len(h.records),
		Failed:  failed,
		Records: filtered,
	})
}

// Get handles GET /records/:id
func (h *RecordsHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "record id must be an integer",
		})
		return
	}

	rec, ok := h.byID[id]
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: "no record with id " + c.Param("id"),
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// Stats handles GET /stats
func (h *RecordsHandler) Stats(c *gin.Context) {
	stats := dto.StatsResponse{
		Total:          len(h.records),
		ByIntent:       make(map[string]int),
		BySatisfaction: make(map[string]int),
		MistakeCounts:  make(map[string]int),
	}

	scoreSum := 0
	for _, rec := range h.records {
		if rec.Analysis == nil {
			if rec.AnalysisError != "" {
				stats.Failed++
			}
			continue
		}
		stats.Analyzed++
		stats.ByIntent[rec.Analysis.Intent]++
		stats.BySatisfaction[rec.Analysis.Satisfaction]++
		scoreSum += rec.Analysis.QualityScore
		for _, m := range rec.Analysis.AgentMistakes {
			stats.MistakeCounts[m]++
		}
	}

	if stats.Analyzed > 0 {
		stats.AverageQualityScore = float64(scoreSum) / float64(stats.Analyzed)
	}

	c.JSON(http.StatusOK, stats)
}
