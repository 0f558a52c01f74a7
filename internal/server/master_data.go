package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
)

// bindCreate decodes a create payload, runs fn and writes 201 with the result.
func bindCreate[Req any, Resp any](c *gin.Context, fn func(*gin.Context, Req) (Resp, error)) {
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := fn(c, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// listByCompany runs a company-scoped list using the company_id query value.
func listByCompany[Resp any](c *gin.Context, fn func(*gin.Context, snowflake.ID) (Resp, error)) {
	companyID, ok := requiredQueryID(c, "company_id")
	if !ok {
		return
	}

	resp, err := fn(c, companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCompany(c *gin.Context) {
	bindCreate(c, func(c *gin.Context, req masterdomain.CreateCompanyRequest) (*masterdomain.Company, error) {
		return s.masterDataSvc.CreateCompany(c.Request.Context(), req)
	})
}

func (s *Server) ListCompanies(c *gin.Context) {
	resp, err := s.masterDataSvc.ListCompanies(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetCompanyDefaults(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req masterdomain.SetCompanyDefaultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.CompanyID = id

	resp, err := s.masterDataSvc.SetCompanyDefaults(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateAccount(c *gin.Context) {
	bindCreate(c, func(c *gin.Context, req masterdomain.CreateAccountRequest) (*masterdomain.Account, error) {
		return s.masterDataSvc.CreateAccount(c.Request.Context(), req)
	})
}

func (s *Server) ListAccounts(c *gin.Context) {
	listByCompany(c, func(c *gin.Context, companyID snowflake.ID) ([]*masterdomain.Account, error) {
		return s.masterDataSvc.ListAccounts(c.Request.Context(), companyID)
	})
}

func (s *Server) CreateJournal(c *gin.Context) {
	bindCreate(c, func(c *gin.Context, req masterdomain.CreateJournalRequest) (*masterdomain.Journal, error) {
		return s.masterDataSvc.CreateJournal(c.Request.Context(), req)
	})
}

func (s *Server) ListJournals(c *gin.Context) {
	listByCompany(c, func(c *gin.Context, companyID snowflake.ID) ([]*masterdomain.Journal, error) {
		return s.masterDataSvc.ListJournals(c.Request.Context(), companyID)
	})
}

func (s *Server) CreateProject(c *gin.Context) {
	bindCreate(c, func(c *gin.Context, req masterdomain.CreateProjectRequest) (*masterdomain.Project, error) {
		return s.masterDataSvc.CreateProject(c.Request.Context(), req)
	})
}

func (s *Server) ListProjects(c *gin.Context) {
	listByCompany(c, func(c *gin.Context, companyID snowflake.ID) ([]*masterdomain.Project, error) {
		return s.masterDataSvc.ListProjects(c.Request.Context(), companyID)
	})
}

func (s *Server) CreateWorkType(c *gin.Context) {
	bindCreate(c, func(c *gin.Context, req masterdomain.CreateWorkTypeRequest) (*masterdomain.WorkType, error) {
		return s.masterDataSvc.CreateWorkType(c.Request.Context(), req)
	})
}

func (s *Server) ListWorkTypes(c *gin.Context) {
	resp, err := s.masterDataSvc.ListWorkTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateContractor(c *gin.Context) {
	bindCreate(c, func(c *gin.Context, req masterdomain.CreateContractorRequest) (*masterdomain.Contractor, error) {
		return s.masterDataSvc.CreateContractor(c.Request.Context(), req)
	})
}

func (s *Server) ListContractors(c *gin.Context) {
	listByCompany(c, func(c *gin.Context, companyID snowflake.ID) ([]*masterdomain.Contractor, error) {
		return s.masterDataSvc.ListContractors(c.Request.Context(), companyID)
	})
}

func (s *Server) CreateProduct(c *gin.Context) {
	bindCreate(c, func(c *gin.Context, req masterdomain.CreateProductRequest) (*masterdomain.Product, error) {
		return s.masterDataSvc.CreateProduct(c.Request.Context(), req)
	})
}

func (s *Server) ListProducts(c *gin.Context) {
	workTypeID, ok := optionalQueryID(c, "work_type_id")
	if !ok {
		return
	}

	resp, err := s.masterDataSvc.ListProducts(c.Request.Context(), workTypeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePaymentMethod(c *gin.Context) {
	bindCreate(c, func(c *gin.Context, req masterdomain.CreatePaymentMethodRequest) (*masterdomain.PaymentMethod, error) {
		return s.masterDataSvc.CreatePaymentMethod(c.Request.Context(), req)
	})
}

func (s *Server) ListPaymentMethods(c *gin.Context) {
	resp, err := s.masterDataSvc.ListPaymentMethods(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
