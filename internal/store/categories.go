package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"timely/internal/domain"
)

// CategoryRepository manages categories and their matching rules.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// InsertCategory inserts a category if it does not exist and returns its id
// either way.
func (r *CategoryRepository) InsertCategory(ctx context.Context, name string, parentID *int64, score float64) (int64, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO categories (name, parent_id, productivity_score) VALUES (?, ?, ?)`,
		name, parentID, score); err != nil {
		return 0, fmt.Errorf("insert category %q: %w", name, err)
	}
	var id int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("look up category %q: %w", name, err)
	}
	return id, nil
}

// GetByName returns the category with the given name, or nil if absent.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	return r.getCategory(ctx, `SELECT id, name, parent_id, productivity_score FROM categories WHERE name = ?`, name)
}

// GetByID returns the category with the given id, or nil if absent.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	return r.getCategory(ctx, `SELECT id, name, parent_id, productivity_score FROM categories WHERE id = ?`, id)
}

func (r *CategoryRepository) getCategory(ctx context.Context, query string, arg any) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Name, &c.ParentID, &c.ProductivityScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// List returns all categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, parent_id, productivity_score FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.ProductivityScore); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// InsertRule adds a matching rule for a category and returns its id.
func (r *CategoryRepository) InsertRule(ctx context.Context, categoryID int64, field domain.RuleField, pattern string, builtin bool, priority int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO category_rules (category_id, field, pattern, is_builtin, priority)
		 VALUES (?, ?, ?, ?, ?)`,
		categoryID, string(field), pattern, boolToInt(builtin), priority)
	if err != nil {
		return 0, fmt.Errorf("insert rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read rule id: %w", err)
	}
	return id, nil
}

// ListRules returns all rules in evaluation order: priority descending, ties
// broken by ascending id.
func (r *CategoryRepository) ListRules(ctx context.Context) ([]domain.CategoryRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.category_id, c.name, r.field, r.pattern, r.is_builtin, r.priority
		 FROM category_rules r
		 JOIN categories c ON c.id = r.category_id
		 ORDER BY r.priority DESC, r.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.CategoryRule
	for rows.Next() {
		var rule domain.CategoryRule
		var field string
		var builtin int
		if err := rows.Scan(&rule.ID, &rule.CategoryID, &rule.CategoryName,
			&field, &rule.Pattern, &builtin, &rule.Priority); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.Field = domain.RuleField(field)
		rule.IsBuiltin = builtin != 0
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

// ListBuiltinRules returns id plus (field, pattern) identity of every builtin
// rule, for the reseed diff.
func (r *CategoryRepository) ListBuiltinRules(ctx context.Context) ([]domain.CategoryRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, field, pattern, priority FROM category_rules WHERE is_builtin = 1`)
	if err != nil {
		return nil, fmt.Errorf("list builtin rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.CategoryRule
	for rows.Next() {
		var rule domain.CategoryRule
		var field string
		if err := rows.Scan(&rule.ID, &rule.CategoryID, &field, &rule.Pattern, &rule.Priority); err != nil {
			return nil, fmt.Errorf("scan builtin rule: %w", err)
		}
		rule.Field = domain.RuleField(field)
		rule.IsBuiltin = true
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builtin rules: %w", err)
	}
	return rules, nil
}

// DeleteRule removes a rule by id, reporting whether it existed.
func (r *CategoryRepository) DeleteRule(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM category_rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete rule %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rule %d: %w", id, err)
	}
	return n > 0, nil
}

// Recategorize rewrites the category of every stored event whose field value
// equals pattern (case-insensitive). Used by `categorize set --retroactive`.
// Glob patterns are not expanded here; the sweep is exact-match only.
func (r *CategoryRepository) Recategorize(ctx context.Context, field domain.RuleField, pattern string, categoryID int64) (int64, error) {
	var query string
	switch field {
	case domain.FieldApp:
		query = `UPDATE events SET category_id = ? WHERE LOWER(app) = LOWER(?)`
	case domain.FieldTitle:
		query = `UPDATE events SET category_id = ? WHERE LOWER(title) = LOWER(?)`
	case domain.FieldURLDomain:
		query = `UPDATE events SET category_id = ? WHERE LOWER(url_domain) = LOWER(?)`
	default:
		return 0, fmt.Errorf("invalid rule field %q", field)
	}
	res, err := r.db.ExecContext(ctx, query, categoryID, pattern)
	if err != nil {
		return 0, fmt.Errorf("recategorize events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recategorize events: %w", err)
	}
	return n, nil
}
