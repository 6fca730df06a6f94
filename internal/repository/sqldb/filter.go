package sqldb

import (
	"fmt"
	"strings"

	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/storage"
)

// condition — предикат WHERE со своими аргументами.
type condition struct {
	clause string
	args   []any
}

// whereBuilder накапливает предикаты и сворачивает их в одно условие через AND.
// Значения передаются только через плейсхолдеры.
type whereBuilder struct {
	conds []condition
}

func (b *whereBuilder) add(clause string, args ...any) *whereBuilder {
	b.conds = append(b.conds, condition{clause: clause, args: args})
	return b
}

// build возвращает " WHERE a AND b" и аргументы по порядку; без условий — пустую строку.
func (b *whereBuilder) build() (string, []any) {
	if len(b.conds) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(b.conds))
	args := make([]any, 0, len(b.conds))
	for _, c := range b.conds {
		clauses = append(clauses, c.clause)
		args = append(args, c.args...)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// productConditions переводит фильтр поиска в предикаты по таблице products.
func productConditions(f usecase.ProductFilter, dialect storage.Dialect) *whereBuilder {
	b := &whereBuilder{}

	if f.Name != nil {
		b.add(fmt.Sprintf(`name %s ? ESCAPE '\'`, dialect.LikeOperator()), "%"+escapeLike(*f.Name)+"%")
	}
	if f.Category != nil {
		b.add("category = ?", *f.Category)
	}
	if f.MinPrice != nil {
		b.add("current_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		b.add("current_price <= ?", *f.MaxPrice)
	}

	return b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike экранирует спецсимволы шаблона, чтобы они совпадали буквально.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
