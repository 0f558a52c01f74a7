package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebill/internal/statement/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, st *domain.Statement) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(st).Error
}

// UpdateHeader writes every header column except the number and creation
// stamps. Numbers are assigned once at insert.
func (r *repo) UpdateHeader(ctx context.Context, db *gorm.DB, st *domain.Statement) error {
	return db.WithContext(ctx).
		Model(st).
		Omit(clause.Associations, "number", "created_at", "created_by").
		Select("*").
		Updates(st).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Statement, error) {
	stmt := db.WithContext(ctx).Where("id = ?", id)
	if forUpdate {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var st domain.Statement
	if err := stmt.First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, db, []*domain.Statement{&st}); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Statement, error) {
	stmt := db.WithContext(ctx).Model(&domain.Statement{})
	if filter.CompanyID != nil {
		stmt = stmt.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.ProjectID != nil {
		stmt = stmt.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.WorkTypeID != nil {
		stmt = stmt.Where("work_type_id = ?", *filter.WorkTypeID)
	}
	if filter.ContractorID != nil {
		stmt = stmt.Where("contractor_id = ?", *filter.ContractorID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		stmt = stmt.Where("statement_date >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("statement_date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var statements []*domain.Statement
	if err := stmt.Order("statement_date DESC, id DESC").Find(&statements).Error; err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, db, statements); err != nil {
		return nil, err
	}
	return statements, nil
}

func (r *repo) loadChildren(ctx context.Context, db *gorm.DB, statements []*domain.Statement) error {
	if len(statements) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(statements))
	byID := make(map[snowflake.ID]*domain.Statement, len(statements))
	for _, st := range statements {
		ids = append(ids, st.ID)
		byID[st.ID] = st
		st.Lines = []domain.StatementLine{}
		st.TaxIDs = []snowflake.ID{}
	}

	var lines []domain.StatementLine
	if err := db.WithContext(ctx).
		Where("statement_id IN ?", ids).
		Order("sequence ASC, id ASC").
		Find(&lines).Error; err != nil {
		return err
	}
	for _, line := range lines {
		st := byID[line.StatementID]
		st.Lines = append(st.Lines, line)
	}

	var links []domain.StatementTax
	if err := db.WithContext(ctx).
		Where("statement_id IN ?", ids).
		Order("tax_id ASC").
		Find(&links).Error; err != nil {
		return err
	}
	for _, link := range links {
		st := byID[link.StatementID]
		st.TaxIDs = append(st.TaxIDs, link.TaxID)
	}
	return nil
}

func (r *repo) NumbersWithPrefix(ctx context.Context, db *gorm.DB, prefix string) ([]string, error) {
	var numbers []string
	err := db.WithContext(ctx).
		Model(&domain.Statement{}).
		Where("number LIKE ?", prefix+"%").
		Pluck("number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// Transition applies updates only while the row still has status from.
// It reports false when another writer moved the statement first.
func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from domain.Status, updates map[string]any) (bool, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Statement{}).
		Where("id = ? AND status = ?", id, from)
	if _, linking := updates["ledger_entry_id"]; linking {
		stmt = stmt.Where("ledger_entry_id IS NULL")
	}
	result := stmt.Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	conn := db.WithContext(ctx)
	if err := conn.Where("statement_id = ?", id).Delete(&domain.StatementTax{}).Error; err != nil {
		return err
	}
	if err := conn.Where("statement_id = ?", id).Delete(&domain.StatementLine{}).Error; err != nil {
		return err
	}
	return conn.Where("id = ?", id).Delete(&domain.Statement{}).Error
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line *domain.StatementLine) error {
	return db.WithContext(ctx).Create(line).Error
}

func (r *repo) SaveLine(ctx context.Context, db *gorm.DB, line *domain.StatementLine) error {
	return db.WithContext(ctx).
		Model(line).
		Omit("created_at").
		Select("*").
		Updates(line).Error
}

func (r *repo) DeleteLine(ctx context.Context, db *gorm.DB, statementID, lineID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ? AND statement_id = ?", lineID, statementID).
		Delete(&domain.StatementLine{}).Error
}

func (r *repo) ReplaceTaxes(ctx context.Context, db *gorm.DB, statementID snowflake.ID, taxIDs []snowflake.ID) error {
	conn := db.WithContext(ctx)
	if err := conn.Where("statement_id = ?", statementID).Delete(&domain.StatementTax{}).Error; err != nil {
		return err
	}
	if len(taxIDs) == 0 {
		return nil
	}
	links := make([]domain.StatementTax, 0, len(taxIDs))
	for _, id := range taxIDs {
		links = append(links, domain.StatementTax{StatementID: statementID, TaxID: id})
	}
	return conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}
