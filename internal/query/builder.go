package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// reserved keys are control parameters, never filter predicates.
var reservedKeys = map[string]struct{}{
	"keyword": {},
	"page":    {},
	"limit":   {},
}

// filterColumns is the allowlist of product columns that may appear in filter
// predicates. Anything else in the query string is ignored, which also keeps
// user input out of the generated SQL.
var filterColumns = map[string]bool{
	"category": false, // text equality
	"price":    true,  // numeric
	"stock":    true,
	"ratings":  true,
}

var operators = map[string]string{
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

type condition struct {
	column string
	op     string
	value  any
}

// Builder accumulates list-endpoint query features (keyword search, field
// filters, pagination) from request parameters and renders them as a SQL
// WHERE clause with positional arguments. Stages are chainable and may be
// applied in any order; each is a no-op when its parameters are absent.
type Builder struct {
	values    url.Values
	conds     []condition
	limit     int
	offset    int
	paginated bool
}

// NewBuilder creates a builder over the given request query parameters.
func NewBuilder(values url.Values) *Builder {
	return &Builder{values: values}
}

// Search adds a case-insensitive contains match on the product name when the
// "keyword" parameter is present and non-empty.
func (b *Builder) Search() *Builder {
	kw := b.values.Get("keyword")
	if kw == "" {
		return b
	}
	b.conds = append(b.conds, condition{column: "name", op: "ILIKE", value: "%" + kw + "%"})
	return b
}

// Filter adds predicates for recognized filter parameters. Reserved control
// keys (keyword, page, limit) are stripped first. A key of the form
// "field[op]" with op in gt/gte/lt/lte becomes a comparison; a bare key
// becomes an equality match. Unrecognized fields and malformed numeric
// values are ignored.
func (b *Builder) Filter() *Builder {
	for key, vals := range b.values {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		if _, ok := reservedKeys[key]; ok {
			continue
		}

		column, op := parseKey(key)
		numeric, ok := filterColumns[column]
		if !ok || op == "" {
			continue
		}

		var value any = vals[0]
		if numeric {
			f, err := strconv.ParseFloat(vals[0], 64)
			if err != nil {
				continue
			}
			value = f
		}

		b.conds = append(b.conds, condition{column: column, op: op, value: value})
	}
	return b
}

// Paginate computes LIMIT/OFFSET from the 1-based "page" parameter and the
// given page size. A missing or malformed page defaults to the first page.
func (b *Builder) Paginate(resultPerPage int) *Builder {
	page := 1
	if v := b.values.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	b.limit = resultPerPage
	b.offset = (page - 1) * resultPerPage
	b.paginated = true
	return b
}

// Clone returns an independent copy of the builder. Pagination applied to
// one copy does not affect the other, so a caller can count filtered rows
// on a clone while paginating the original.
func (b *Builder) Clone() *Builder {
	clone := &Builder{
		values:    b.values,
		limit:     b.limit,
		offset:    b.offset,
		paginated: b.paginated,
	}
	clone.conds = append([]condition(nil), b.conds...)
	return clone
}

// Where renders the accumulated predicates as a SQL WHERE clause with
// positional arguments. It returns an empty clause when no predicates apply.
func (b *Builder) Where() (string, []any) {
	if len(b.conds) == 0 {
		return "", nil
	}

	exprs := make([]string, 0, len(b.conds))
	args := make([]any, 0, len(b.conds))
	for i, c := range b.conds {
		exprs = append(exprs, fmt.Sprintf("%s %s $%d", c.column, c.op, i+1))
		args = append(args, c.value)
	}
	return "WHERE " + strings.Join(exprs, " AND "), args
}

// Limit returns the page size set by Paginate, or 0 when unpaginated.
func (b *Builder) Limit() int { return b.limit }

// Offset returns the row offset set by Paginate.
func (b *Builder) Offset() int { return b.offset }

// Paginated reports whether Paginate has been applied.
func (b *Builder) Paginated() bool { return b.paginated }

// parseKey splits a filter key into its column and SQL operator. A bare key
// maps to equality; "field[op]" maps through the operator table. An unknown
// operator yields an empty op, which the caller skips.
func parseKey(key string) (column, op string) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, "="
	}
	if !strings.HasSuffix(key, "]") {
		return key, ""
	}
	column = key[:open]
	name := key[open+1 : len(key)-1]
	return column, operators[name]
}
