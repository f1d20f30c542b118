package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	"github.com/smallbiznis/credia/pkg/db/pagination"
)

func (s *Server) OriginateLoan(c *gin.Context) {
	var req loandomain.OriginateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	loan, err := s.loanSvc.Originate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": loan})
}

func (s *Server) BatchOriginateLoans(c *gin.Context) {
	var req loandomain.BatchOriginateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	loans, err := s.loanSvc.BatchOriginate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": loans})
}

func (s *Server) RenewLoan(c *gin.Context) {
	previousID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req loandomain.RenewLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PreviousLoanID = previousID

	loan, err := s.loanSvc.Renew(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": loan})
}

func (s *Server) MarkLoanBadDebt(c *gin.Context) {
	loanID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	loan, err := s.loanSvc.MarkBadDebt(c.Request.Context(), loanID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": loan})
}

func (s *Server) UnmarkLoanBadDebt(c *gin.Context) {
	loanID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	loan, err := s.loanSvc.UnmarkBadDebt(c.Request.Context(), loanID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": loan})
}

func (s *Server) GetLoanByID(c *gin.Context) {
	loanID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	loan, err := s.loanSvc.Get(c.Request.Context(), loanID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": loan})
}

func (s *Server) ListLoans(c *gin.Context) {
	var query struct {
		pagination.Pagination
		LeadID  string `form:"lead_id"`
		RouteID string `form:"route_id"`
		Status  string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	leadID, err := parseOptionalSnowflakeID(query.LeadID)
	if err != nil {
		AbortWithError(c, newValidationError("lead_id", "invalid_lead_id", "invalid lead_id"))
		return
	}
	routeID, err := parseOptionalSnowflakeID(query.RouteID)
	if err != nil {
		AbortWithError(c, newValidationError("route_id", "invalid_route_id", "invalid route_id"))
		return
	}

	resp, err := s.loanSvc.List(c.Request.Context(), loandomain.ListLoanRequest{
		Pagination: query.Pagination,
		LeadID:     leadID,
		RouteID:    routeID,
		Status:     loandomain.LoanStatus(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Loans, "page_info": resp.PageInfo})
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req loandomain.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.loanSvc.RecordPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CancelPayment(c *gin.Context) {
	paymentID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	if err := s.loanSvc.CancelPayment(c.Request.Context(), paymentID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
