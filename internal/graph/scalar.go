package graph

import (
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// Layouts accepted for DateTime input, most specific first. Values without
// an offset are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DateTime serializes time values as RFC 3339 and parses ISO-8601 strings
// with or without a UTC offset.
var DateTime = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "DateTime",
	Description: "ISO-8601 timestamp",
	Serialize:   serializeDateTime,
	ParseValue: func(value interface{}) interface{} {
		if s, ok := value.(string); ok {
			if t, ok := ParseDateTime(s); ok {
				return t
			}
		}
		return nil
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		if s, ok := valueAST.(*ast.StringValue); ok {
			if t, ok := ParseDateTime(s.Value); ok {
				return t
			}
		}
		return nil
	},
})

func serializeDateTime(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339Nano)
	default:
		return nil
	}
}

// ParseDateTime parses s using the accepted DateTime layouts.
func ParseDateTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
