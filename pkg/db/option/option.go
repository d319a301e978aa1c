package option

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/smallbiznis/gglounge/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption narrows or orders a query built by pkg/repository.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// WithEquals adds an equality predicate. Multiple calls AND together.
func WithEquals(column string, value any) QueryOption {
	column = strings.TrimSpace(column)
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if !columnPattern.MatchString(column) {
			_ = db.AddError(fmt.Errorf("invalid filter column %q", column))
			return db
		}
		return db.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	})
}

// WithSort orders by a single column.
func WithSort(column string, direction SortDirection) QueryOption {
	column = strings.TrimSpace(column)
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if !columnPattern.MatchString(column) {
			_ = db.AddError(fmt.Errorf("invalid sort column %q", column))
			return db
		}
		return db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: column},
			Desc:   direction == SortDesc,
		})
	})
}

// WithLimit caps the number of returned rows.
func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

// ParseSortDirection defaults to ascending for anything but "desc".
func ParseSortDirection(raw string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// ApplyPagination applies keyset pagination over (created_at, id), newest first.
// It fetches one extra row so callers can detect a further page.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		if cursor != nil {
			db = db.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Limit(page.Size() + 1)
	})
}
