package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/sitebill/internal/report/domain"
)

func (s *Server) StatementAnalysis(c *gin.Context) {
	filter, ok := analysisFilter(c)
	if !ok {
		return
	}

	resp, err := s.reportSvc.Analysis(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportStatementAnalysis(c *gin.Context) {
	filter, ok := analysisFilter(c)
	if !ok {
		return
	}

	file, err := s.reportSvc.ExportAnalysis(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sendFile(c, file)
}

func analysisFilter(c *gin.Context) (reportdomain.Filter, bool) {
	var filter reportdomain.Filter
	var ok bool
	if filter.CompanyID, ok = optionalQueryID(c, "company_id"); !ok {
		return filter, false
	}
	if filter.ProjectID, ok = optionalQueryID(c, "project_id"); !ok {
		return filter, false
	}
	if filter.WorkTypeID, ok = optionalQueryID(c, "work_type_id"); !ok {
		return filter, false
	}
	if filter.ContractorID, ok = optionalQueryID(c, "contractor_id"); !ok {
		return filter, false
	}
	if filter.From, ok = optionalQueryTime(c, "from", false); !ok {
		return filter, false
	}
	if filter.To, ok = optionalQueryTime(c, "to", true); !ok {
		return filter, false
	}
	if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" {
		filter.Status = &status
	}
	return filter, true
}
