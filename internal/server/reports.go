package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/credia/internal/report/domain"
)

type weekQuery struct {
	Year int `form:"year" binding:"required"`
	Week int `form:"week" binding:"required"`
}

func (s *Server) GetWeeklyReport(c *gin.Context) {
	var query weekQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if query.Week < 1 || query.Week > 53 {
		AbortWithError(c, newValidationError("week", "invalid_week", "invalid week"))
		return
	}

	report, err := s.reportSvc.Weekly(c.Request.Context(), reportdomain.WeeklyReportRequest{
		Year:       query.Year,
		WeekNumber: query.Week,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) GetMonthlyReport(c *gin.Context) {
	var query struct {
		Year  int `form:"year" binding:"required"`
		Month int `form:"month" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if query.Month < 1 || query.Month > 12 {
		AbortWithError(c, newValidationError("month", "invalid_month", "invalid month"))
		return
	}

	report, err := s.reportSvc.Monthly(c.Request.Context(), reportdomain.MonthlyReportRequest{
		Year:  query.Year,
		Month: time.Month(query.Month),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) GetBreakdownReport(c *gin.Context) {
	var query struct {
		weekQuery
		Dimension string `form:"dimension"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if query.Week < 1 || query.Week > 53 {
		AbortWithError(c, newValidationError("week", "invalid_week", "invalid week"))
		return
	}

	report, err := s.reportSvc.Breakdown(c.Request.Context(), reportdomain.BreakdownRequest{
		Year:       query.Year,
		WeekNumber: query.Week,
		Dimension:  reportdomain.BreakdownDimension(query.Dimension),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) GetWriteOffCandidates(c *gin.Context) {
	candidates, err := s.reportSvc.WriteOffCandidates(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": candidates})
}

func (s *Server) SnapshotWeeklyReport(c *gin.Context) {
	var req struct {
		Year int `json:"year" binding:"required"`
		Week int `json:"week" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Week < 1 || req.Week > 53 {
		AbortWithError(c, newValidationError("week", "invalid_week", "invalid week"))
		return
	}

	snapshot, err := s.reportSvc.SnapshotWeek(c.Request.Context(), req.Year, req.Week)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": snapshot})
}
