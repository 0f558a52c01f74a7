package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const defaultSlot = "default"

// Config binds a retention percentage and the deduction accounts to a
// project and/or work type. ScopeKey and DefaultSlot exist only to carry the
// unique indexes that keep one config per scope and one default per company.
type Config struct {
	ID                  snowflake.ID    `gorm:"primaryKey" json:"id"`
	CompanyID           snowflake.ID    `gorm:"not null;uniqueIndex:ux_deduction_configs_scope,priority:1;uniqueIndex:ux_deduction_configs_default,priority:1" json:"company_id"`
	Name                string          `gorm:"type:text;not null" json:"name"`
	ProjectID           *snowflake.ID   `gorm:"index" json:"project_id,omitempty"`
	WorkTypeID          *snowflake.ID   `gorm:"index" json:"work_type_id,omitempty"`
	IsDefault           bool            `gorm:"not null" json:"is_default"`
	Active              bool            `gorm:"not null" json:"active"`
	RetentionPercentage decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"retention_percentage"`
	AdvanceAccountID    *snowflake.ID   `json:"advance_account_id,omitempty"`
	RetentionAccountID  *snowflake.ID   `json:"retention_account_id,omitempty"`
	OtherAccountID      *snowflake.ID   `json:"other_account_id,omitempty"`
	ScopeKey            *string         `gorm:"type:varchar(64);uniqueIndex:ux_deduction_configs_scope,priority:2" json:"-"`
	DefaultSlot         *string         `gorm:"type:varchar(16);uniqueIndex:ux_deduction_configs_default,priority:2" json:"-"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null" json:"updated_at"`
}

func (Config) TableName() string { return "deduction_configs" }

// Scoped reports whether the config targets a project or work type.
func (c Config) Scoped() bool {
	return c.ProjectID != nil || c.WorkTypeID != nil
}

// ApplySlots recomputes the unique-index columns from the scope fields.
// Inactive configs release both slots.
func (c *Config) ApplySlots() {
	c.ScopeKey = nil
	c.DefaultSlot = nil
	if !c.Active {
		return
	}
	if c.Scoped() {
		key := ScopeKey(c.ProjectID, c.WorkTypeID)
		c.ScopeKey = &key
	}
	if c.IsDefault {
		slot := defaultSlot
		c.DefaultSlot = &slot
	}
}

// ScopeKey renders the uniqueness key for a project/work type pair.
func ScopeKey(projectID, workTypeID *snowflake.ID) string {
	p, w := "*", "*"
	if projectID != nil {
		p = projectID.String()
	}
	if workTypeID != nil {
		w = workTypeID.String()
	}
	return fmt.Sprintf("p:%s|w:%s", p, w)
}
