package database

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// WhereBuilder assembles a parameterised WHERE clause. Conditions with an
// empty value are skipped, so optional filters can be added unconditionally.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty builder; the first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

func (wb *WhereBuilder) push(format string, arg any) {
	wb.conditions = append(wb.conditions, fmt.Sprintf(format, wb.argIndex))
	wb.args = append(wb.args, arg)
	wb.argIndex++
}

// Add appends "column = $n" unless value is empty.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.push(column+" = $%d", value)
}

// AddValue appends "column = $n" for any non-nil value.
func (wb *WhereBuilder) AddValue(column string, value any) {
	if value == nil {
		return
	}
	wb.push(column+" = $%d", value)
}

// AddILike appends a case-insensitive substring match unless term is empty.
func (wb *WhereBuilder) AddILike(column, term string) {
	if term == "" {
		return
	}
	wb.push(column+` ILIKE $%d ESCAPE '\'`, "%"+escapeLike(term)+"%")
}

// AddOverlap matches rows whose array column shares any element with values.
func (wb *WhereBuilder) AddOverlap(column string, values []string) {
	if len(values) == 0 {
		return
	}
	wb.push(column+" && $%d", values)
}

// AddAnyUUID matches rows whose uuid column equals any of ids.
func (wb *WhereBuilder) AddAnyUUID(column string, ids []uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	wb.push(column+" = ANY($%d::uuid[])", strs)
}

// AddRaw appends a condition without arguments.
func (wb *WhereBuilder) AddRaw(condition string) {
	wb.conditions = append(wb.conditions, condition)
}

// NextArgIndex returns the placeholder number the next argument would take.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns " WHERE a AND b" (or "") and the arguments.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
