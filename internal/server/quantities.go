package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	quantitydomain "github.com/smallbiznis/sitebill/internal/quantity/domain"
)

type setContractQuantityRequest struct {
	quantitydomain.Key
	ContractQty decimal.Decimal `json:"contract_qty"`
}

func (s *Server) ListQuantityEntries(c *gin.Context) {
	projectID, ok := requiredQueryID(c, "project_id")
	if !ok {
		return
	}

	resp, err := s.quantitySvc.ListEntries(c.Request.Context(), projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetContractQuantity(c *gin.Context) {
	var req setContractQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quantitySvc.SetContractQuantity(c.Request.Context(), req.Key, req.ContractQty)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReconcileQuantity(c *gin.Context) {
	s.reconcile(c, s.quantitySvc.Reconcile)
}

// BackfillQuantity rewrites the running total from billed history.
func (s *Server) BackfillQuantity(c *gin.Context) {
	s.reconcile(c, s.quantitySvc.Backfill)
}

func (s *Server) reconcile(c *gin.Context, fn func(ctx context.Context, key quantitydomain.Key) (quantitydomain.Reconciliation, error)) {
	var key quantitydomain.Key
	if err := c.ShouldBindJSON(&key); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := fn(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"reconciliation": resp,
		"in_sync":        resp.InSync(),
	}})
}
