package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"support_directory_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Operator is a comparison a predicate applies to its field
type Operator string

const (
	OpEq      Operator = "="
	OpNe      Operator = "<>"
	OpGte     Operator = ">="
	OpLte     Operator = "<="
	OpIn      Operator = "IN"
	OpLike    Operator = "LIKE"
	OpNotNull Operator = "IS NOT NULL"
)

// ValueKind tells the composer how to parse a caller-supplied option
type ValueKind string

const (
	ValueBool  ValueKind = "bool"
	ValueEnum  ValueKind = "enum"
	ValueInt   ValueKind = "int"
	ValueFloat ValueKind = "float"
	ValueText  ValueKind = "text"
)

// Result limits
const (
	DefaultResultLimit = 50
	MaxResultLimit     = 200
)

// Predicate is one filter condition. Optional predicates are emitted only
// when the caller supplied Option; fixed predicates always apply with Value.
type Predicate struct {
	Option   string
	Field    string
	Operator Operator
	Kind     ValueKind
	Enum     []string
	Value    interface{}
	Optional bool
}

// Expression renders the predicate as a parameterized gorm clause. Field
// names only ever come from a domain vocabulary.
func (p Predicate) Expression() clause.Expression {
	col := clause.Column{Name: p.Field}
	switch p.Operator {
	case OpNe:
		return clause.Neq{Column: col, Value: p.Value}
	case OpGte:
		return clause.Gte{Column: col, Value: p.Value}
	case OpLte:
		return clause.Lte{Column: col, Value: p.Value}
	case OpIn:
		values, _ := p.Value.([]interface{})
		return clause.IN{Column: col, Values: values}
	case OpLike:
		return clause.Expr{
			SQL:  "? LIKE ? ESCAPE '" + likeEscape + "'",
			Vars: []interface{}{col, "%" + escapeLike(fmt.Sprint(p.Value)) + "%"},
		}
	case OpNotNull:
		return clause.Expr{SQL: "? IS NOT NULL", Vars: []interface{}{col}}
	default:
		return clause.Eq{Column: col, Value: p.Value}
	}
}

// likeEscape is the LIKE escape character on every supported driver
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// escapeLike makes LIKE wildcards in caller text match literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (p Predicate) String() string {
	if p.Operator == OpNotNull {
		return p.Field + " IS NOT NULL"
	}
	return fmt.Sprintf("%s %s %v", p.Field, p.Operator, p.Value)
}

// FilterCriteria is the immutable caller input to a discovery query
type FilterCriteria struct {
	origin  *models.Location
	radius  *float64
	unit    DistanceUnit
	options map[string]string
	limit   int
	staff   bool
}

// NewFilterCriteria validates and freezes caller input. Origin and radius
// must be supplied together.
func NewFilterCriteria(origin *models.Location, radius *float64, unit DistanceUnit, options map[string]string, limit int) (FilterCriteria, error) {
	if (origin == nil) != (radius == nil) {
		return FilterCriteria{}, NewValidationError("origin and radius must be supplied together")
	}
	if origin != nil {
		if err := ValidateLocation(*origin); err != nil {
			return FilterCriteria{}, err
		}
		if math.IsNaN(*radius) || math.IsInf(*radius, 0) || *radius <= 0 {
			return FilterCriteria{}, NewValidationError("radius must be a positive number")
		}
	}
	if unit == "" {
		unit = UnitKilometres
	}
	if unit != UnitKilometres && unit != UnitMiles {
		return FilterCriteria{}, NewValidationError("unknown distance unit %q", unit)
	}
	if limit < 0 || limit > MaxResultLimit {
		return FilterCriteria{}, NewValidationError("limit must be between 1 and %d", MaxResultLimit)
	}
	if limit == 0 {
		limit = DefaultResultLimit
	}

	criteria := FilterCriteria{unit: unit, limit: limit, options: make(map[string]string, len(options))}
	if origin != nil {
		o, r := *origin, *radius
		criteria.origin = &o
		criteria.radius = &r
	}
	for k, v := range options {
		criteria.options[k] = v
	}
	return criteria, nil
}

// Origin returns the proximity origin, if any
func (c FilterCriteria) Origin() (models.Location, bool) {
	if c.origin == nil {
		return models.Location{}, false
	}
	return *c.origin, true
}

// Radius returns the proximity radius in Unit, if any
func (c FilterCriteria) Radius() (float64, bool) {
	if c.radius == nil {
		return 0, false
	}
	return *c.radius, true
}

func (c FilterCriteria) Unit() DistanceUnit { return c.unit }

func (c FilterCriteria) Limit() int { return c.limit }

// ForStaff returns a copy of the criteria that also matches resources
// restricted from public discovery
func (c FilterCriteria) ForStaff() FilterCriteria {
	c.staff = true
	return c
}

// Staff reports whether restricted resources may match
func (c FilterCriteria) Staff() bool { return c.staff }

// Option returns a caller-supplied option value
func (c FilterCriteria) Option(name string) (string, bool) {
	v, ok := c.options[name]
	return v, ok
}

// Query is a composed discovery query: ordered pre-selection predicates
// evaluated by the store, plus an optional proximity post-selection step.
// With proximity, pre-selection bounds coordinates to the radius's
// bounding box and the exact distance check runs afterwards.
type Query struct {
	Predicates []Predicate

	origin *models.Location
	radius float64
	unit   DistanceUnit
	limit  int
}

// Compose builds the query for criteria against a domain vocabulary.
// Predicates keep vocabulary order so identical input yields identical queries.
func Compose(criteria FilterCriteria, vocabulary []Predicate) (Query, error) {
	q := Query{unit: criteria.Unit(), limit: criteria.Limit()}
	if q.limit == 0 {
		q.limit = DefaultResultLimit
	}

	for _, p := range vocabulary {
		if !p.Optional {
			q.Predicates = append(q.Predicates, p)
			continue
		}
		raw, ok := criteria.Option(p.Option)
		if !ok {
			continue
		}
		value, err := parseOptionValue(p, raw)
		if err != nil {
			return Query{}, err
		}
		p.Value = value
		q.Predicates = append(q.Predicates, p)
	}

	if origin, ok := criteria.Origin(); ok {
		radius, _ := criteria.Radius()
		q.origin = &origin
		q.radius = radius
		q.Predicates = append(q.Predicates,
			Predicate{Field: "latitude", Operator: OpNotNull},
			Predicate{Field: "longitude", Operator: OpNotNull},
		)
		if box, ok := BoundingBoxFor(origin, radius, q.unit); ok {
			q.Predicates = append(q.Predicates,
				Predicate{Field: "latitude", Operator: OpGte, Kind: ValueFloat, Value: box.MinLat},
				Predicate{Field: "latitude", Operator: OpLte, Kind: ValueFloat, Value: box.MaxLat},
			)
			if box.HasLongitude {
				q.Predicates = append(q.Predicates,
					Predicate{Field: "longitude", Operator: OpGte, Kind: ValueFloat, Value: box.MinLng},
					Predicate{Field: "longitude", Operator: OpLte, Kind: ValueFloat, Value: box.MaxLng},
				)
			}
		}
	}
	return q, nil
}

// HasProximity reports whether the query post-filters by distance
func (q Query) HasProximity() bool {
	return q.origin != nil
}

// Apply adds the pre-selection predicates to tx. Without proximity the
// store also orders by name and applies the limit.
func (q Query) Apply(tx *gorm.DB) *gorm.DB {
	for _, p := range q.Predicates {
		tx = tx.Where(p.Expression())
	}
	if q.HasProximity() {
		return tx.Order("id ASC")
	}
	return tx.Order("LOWER(name) ASC").Order("id ASC").Limit(q.limit)
}

// Describe renders a stable textual form of the query
func (q Query) Describe() string {
	parts := make([]string, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		parts = append(parts, p.String())
	}

	var b strings.Builder
	b.WriteString("WHERE ")
	b.WriteString(strings.Join(parts, " AND "))
	if q.HasProximity() {
		fmt.Fprintf(&b, " HAVING distance < %g %s FROM (%g, %g) ORDER BY distance, name",
			q.radius, q.unit, q.origin.Latitude, q.origin.Longitude)
	} else {
		b.WriteString(" ORDER BY name")
	}
	fmt.Fprintf(&b, " LIMIT %d", q.limit)
	return b.String()
}

// withinRadius is the proximity boundary: strictly less than
func withinRadius(distance, radius float64) bool {
	return distance < radius
}

// rankByProximity is the post-selection step: keep rows strictly inside the
// radius, sort by distance then name, truncate to the limit. Rows without
// coordinates are dropped.
func rankByProximity[R models.Resource](q Query, rows []R) []R {
	if !q.HasProximity() {
		return rows
	}

	kept := make([]R, 0, len(rows))
	for _, row := range rows {
		base := row.Base()
		loc, ok := base.Location()
		if !ok {
			continue
		}
		d := Distance(*q.origin, loc, q.unit)
		if !withinRadius(d, q.radius) {
			continue
		}
		base.Distance = &d
		kept = append(kept, row)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i].Base(), kept[j].Base()
		if *a.Distance != *b.Distance {
			return *a.Distance < *b.Distance
		}
		return lessByName(a, b)
	})

	if len(kept) > q.limit {
		kept = kept[:q.limit]
	}
	return kept
}

func parseOptionValue(p Predicate, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)

	switch p.Kind {
	case ValueBool:
		switch strings.ToLower(raw) {
		case "", "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
		return nil, NewValidationError("%s must be true or false", p.Option)
	case ValueInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, NewValidationError("%s must be a whole number", p.Option)
		}
		return n, nil
	case ValueFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, NewValidationError("%s must be a number", p.Option)
		}
		return f, nil
	case ValueEnum:
		values := strings.Split(raw, ",")
		parsed := make([]interface{}, 0, len(values))
		for _, v := range values {
			v = strings.TrimSpace(v)
			if !containsString(p.Enum, v) {
				return nil, NewValidationError("%s must be one of %s", p.Option, strings.Join(p.Enum, ", "))
			}
			parsed = append(parsed, v)
		}
		if p.Operator == OpIn {
			return parsed, nil
		}
		if len(parsed) != 1 {
			return nil, NewValidationError("%s accepts a single value", p.Option)
		}
		return parsed[0], nil
	default:
		if raw == "" {
			return nil, NewValidationError("%s must not be empty", p.Option)
		}
		if len(raw) > 100 {
			return nil, NewValidationError("%s is too long", p.Option)
		}
		return raw, nil
	}
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
