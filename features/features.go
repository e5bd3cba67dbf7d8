// Package features turns the query string of a list request into a MongoDB
// filter and find options: filtering with comparison operators, sorting,
// field selection and pagination.
package features

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanjiv-madhavan/go-natours/apperror"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

func pageNotFound() *apperror.AppError {
	return apperror.NotFound("This page does not exist.")
}

var excludedFields = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// Fields that may legitimately be repeated in a query string; repeats become
// an $in match. Any other repeated key keeps only its last value.
var multiValueFields = map[string]bool{
	"duration":        true,
	"ratingsQuantity": true,
	"ratingsAverage":  true,
	"maxGroupSize":    true,
	"difficulty":      true,
	"price":           true,
}

var (
	bracketKey = regexp.MustCompile(`^([^\[\]]+)\[([^\[\]]+)\]$`)
	operator   = regexp.MustCompile(`^(gte|gt|lte|lt)$`)
)

// Counter reports how many documents match a filter.
type Counter interface {
	Count(ctx context.Context, filter bson.M) (int64, error)
}

type Query struct {
	params url.Values
	base   bson.M
	filter bson.M
	opts   *options.FindOptions
	err    error
}

// New starts a query over params. base holds conditions the caller always
// applies (scopes, soft-delete and secrecy predicates); they cannot be
// overridden from the query string.
func New(params url.Values, base bson.M) *Query {
	if base == nil {
		base = bson.M{}
	}
	return &Query{
		params: params,
		base:   base,
		filter: combine(bson.M{}, base),
		opts:   options.Find(),
	}
}

func (q *Query) Filter() *Query {
	filter := bson.M{}
	for key, values := range q.params {
		if excludedFields[key] || len(values) == 0 {
			continue
		}
		field, op := key, ""
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			field, op = m[1], m[2]
		}
		if unsafeKey(field) || unsafeKey(op) {
			continue
		}
		value := q.value(field, values)
		if op == "" {
			filter[field] = value
			continue
		}
		if operator.MatchString(op) {
			op = "$" + op
		}
		nested, ok := filter[field].(bson.M)
		if !ok {
			nested = bson.M{}
			filter[field] = nested
		}
		nested[op] = value
	}
	q.filter = combine(filter, q.base)
	return q
}

func (q *Query) value(field string, values []string) any {
	if len(values) > 1 && multiValueFields[field] {
		in := make(bson.A, 0, len(values))
		for _, v := range values {
			in = append(in, coerce(v))
		}
		return bson.M{"$in": in}
	}
	return coerce(values[len(values)-1])
}

func (q *Query) Sort() *Query {
	sortBy := q.last("sort")
	if sortBy == "" {
		q.opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
		return q
	}
	sort := bson.D{}
	for _, field := range splitList(sortBy) {
		if strings.HasPrefix(field, "-") {
			sort = append(sort, bson.E{Key: strings.TrimPrefix(field, "-"), Value: -1})
			continue
		}
		sort = append(sort, bson.E{Key: field, Value: 1})
	}
	q.opts.SetSort(sort)
	return q
}

func (q *Query) LimitFields() *Query {
	fields := q.last("fields")
	if fields == "" {
		q.opts.SetProjection(bson.M{"__v": 0})
		return q
	}
	projection := bson.M{}
	for _, field := range splitList(fields) {
		if unsafeKey(strings.TrimPrefix(field, "-")) {
			continue
		}
		if strings.HasPrefix(field, "-") {
			projection[strings.TrimPrefix(field, "-")] = 0
			continue
		}
		projection[field] = 1
	}
	q.opts.SetProjection(projection)
	return q
}

// Hide keeps fields out of the result whatever projection was requested.
func (q *Query) Hide(fields ...string) *Query {
	projection, _ := q.opts.Projection.(bson.M)
	if projection == nil {
		projection = bson.M{}
	}
	inclusive := false
	for key, v := range projection {
		if v == 1 && key != "_id" {
			inclusive = true
			break
		}
	}
	for _, field := range fields {
		if inclusive {
			delete(projection, field)
			continue
		}
		projection[field] = 0
	}
	q.opts.SetProjection(projection)
	return q
}

func (q *Query) Paginate(ctx context.Context, counter Counter) *Query {
	page := positive(q.last("page"), DefaultPage)
	limit := positive(q.last("limit"), DefaultLimit)
	skip := (page - 1) * limit
	q.opts.SetSkip(skip).SetLimit(limit)

	if q.last("page") == "" || q.err != nil {
		return q
	}
	total, err := counter.Count(ctx, q.filter)
	if err != nil {
		q.err = err
		return q
	}
	if skip >= total {
		q.err = pageNotFound()
	}
	return q
}

func (q *Query) Result() (bson.M, *options.FindOptions, error) {
	return q.filter, q.opts, q.err
}

func (q *Query) last(key string) string {
	return lastValue(q.params, key)
}

// combine merges the request filter with the fixed base conditions. When both
// constrain the same field the two are joined with $and so neither is lost.
func combine(filter, base bson.M) bson.M {
	if len(filter) == 0 {
		out := bson.M{}
		for k, v := range base {
			out[k] = v
		}
		return out
	}
	for key := range base {
		if _, clash := filter[key]; clash {
			return bson.M{"$and": bson.A{filter, base}}
		}
	}
	for k, v := range base {
		filter[k] = v
	}
	return filter
}

func unsafeKey(key string) bool {
	return strings.HasPrefix(key, "$") || strings.Contains(key, "$")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positive(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func coerce(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	if primitive.IsValidObjectID(s) {
		id, _ := primitive.ObjectIDFromHex(s)
		return id
	}
	return s
}
