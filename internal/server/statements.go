package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/sitebill/internal/report/domain"
	statementdomain "github.com/smallbiznis/sitebill/internal/statement/domain"
)

func (s *Server) CreateStatement(c *gin.Context) {
	var req statementdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Actor = actor(c)

	resp, err := s.statementSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListStatements(c *gin.Context) {
	var filter statementdomain.ListFilter
	var ok bool
	if filter.CompanyID, ok = optionalQueryID(c, "company_id"); !ok {
		return
	}
	if filter.ProjectID, ok = optionalQueryID(c, "project_id"); !ok {
		return
	}
	if filter.WorkTypeID, ok = optionalQueryID(c, "work_type_id"); !ok {
		return
	}
	if filter.ContractorID, ok = optionalQueryID(c, "contractor_id"); !ok {
		return
	}
	if filter.From, ok = optionalQueryTime(c, "from", false); !ok {
		return
	}
	if filter.To, ok = optionalQueryTime(c, "to", true); !ok {
		return
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := statementdomain.Status(strings.ToLower(raw))
		if !status.Valid() {
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
		filter.Status = &status
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	filter.Limit = limit

	resp, err := s.statementSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.statementSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PreviewStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.statementSvc.Preview(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req statementdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.statementSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.statementSvc.Delete(c.Request.Context(), id, actor(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) AddStatementLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req statementdomain.LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.statementSvc.AddLine(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateStatementLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	var req statementdomain.LineUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.statementSvc.UpdateLine(c.Request.Context(), id, lineID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveStatementLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}

	resp, err := s.statementSvc.RemoveLine(c.Request.Context(), id, lineID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmStatement(c *gin.Context) {
	s.transition(c, s.statementSvc.Confirm)
}

func (s *Server) ResetStatement(c *gin.Context) {
	s.transition(c, s.statementSvc.ResetToDraft)
}

func (s *Server) ApproveStatement(c *gin.Context) {
	s.transition(c, s.statementSvc.Approve)
}

type payStatementRequest struct {
	PaymentMethodID *string `json:"payment_method_id"`
	PaymentNotes    *string `json:"payment_notes"`
}

func (s *Server) PayStatement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req payStatementRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	var markPaid statementdomain.MarkPaidRequest
	if req.PaymentMethodID != nil {
		methodID, err := parseOptionalSnowflakeID(*req.PaymentMethodID)
		if err != nil {
			AbortWithError(c, newValidationError("payment_method_id", "invalid_payment_method_id", "invalid payment_method_id"))
			return
		}
		markPaid.PaymentMethodID = methodID
	}
	markPaid.PaymentNotes = req.PaymentNotes

	resp, err := s.statementSvc.MarkPaid(c.Request.Context(), id, actor(c), markPaid)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportStatementWorkbook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	file, err := s.reportSvc.ExportStatement(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sendFile(c, file)
}

func (s *Server) ExportStatementPDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	file, err := s.reportSvc.RenderStatementPDF(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sendFile(c, file)
}

type transitionFunc func(ctx context.Context, id snowflake.ID, actor string) (*statementdomain.Statement, error)

func (s *Server) transition(c *gin.Context, fn transitionFunc) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := fn(c.Request.Context(), id, actor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func sendFile(c *gin.Context, file *reportdomain.File) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
