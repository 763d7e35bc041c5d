// Package graph exposes trips and vendors over GraphQL.
package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/taxi-insights/backend/internal/models"
	"github.com/taxi-insights/backend/internal/trips"
)

var errNoSession = errors.New("no database session for request")

// Schema is the executable GraphQL schema bound to a trip repository.
type Schema struct {
	schema graphql.Schema
	repo   *trips.Repository
}

// NewSchema builds the schema. Resolvers read the request connection with
// trips.QuerierFrom, so Execute must receive a context carrying one.
func NewSchema(repo *trips.Repository) (*Schema, error) {
	s := &Schema{repo: repo}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"allTrips": &graphql.Field{
				Type: graphql.NewList(tripType),
				Args: graphql.FieldConfigArgument{
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
					"offset":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"vendor_id":  &graphql.ArgumentConfig{Type: graphql.Int},
					"start_date": &graphql.ArgumentConfig{Type: DateTime},
					"end_date":   &graphql.ArgumentConfig{Type: DateTime},
				},
				Resolve: s.resolveAllTrips,
			},
			"tripById": &graphql.Field{
				Type: tripType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: s.resolveTripByID,
			},
			"allVendors": &graphql.Field{
				Type: graphql.NewList(vendorType),
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: s.resolveAllVendors,
			},
			"vendorById": &graphql.Field{
				Type: vendorType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: s.resolveVendorByID,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		return nil, fmt.Errorf("building graphql schema: %w", err)
	}
	s.schema = schema
	return s, nil
}

// Request is the standard GraphQL-over-HTTP request body.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Execute runs req against the schema.
func (s *Schema) Execute(ctx context.Context, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        ctx,
	})
}

// FailedBeforeExecution reports whether res carries only request errors
// (syntax, validation, variable coercion) and no data at all.
func FailedBeforeExecution(res *graphql.Result) bool {
	return res.Data == nil && res.HasErrors()
}

var tripType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Trip",
	Fields: graphql.Fields{
		"id":                 tripField(graphql.String, func(t *models.Trip) interface{} { return t.ID }),
		"vendor_id":          tripField(graphql.Int, func(t *models.Trip) interface{} { return deref(t.VendorID) }),
		"pickup_datetime":    tripField(DateTime, func(t *models.Trip) interface{} { return deref(t.PickupDatetime) }),
		"dropoff_datetime":   tripField(DateTime, func(t *models.Trip) interface{} { return deref(t.DropoffDatetime) }),
		"passenger_count":    tripField(graphql.Int, func(t *models.Trip) interface{} { return deref(t.PassengerCount) }),
		"pickup_longitude":   tripField(graphql.Float, func(t *models.Trip) interface{} { return deref(t.PickupLongitude) }),
		"pickup_latitude":    tripField(graphql.Float, func(t *models.Trip) interface{} { return deref(t.PickupLatitude) }),
		"dropoff_longitude":  tripField(graphql.Float, func(t *models.Trip) interface{} { return deref(t.DropoffLongitude) }),
		"dropoff_latitude":   tripField(graphql.Float, func(t *models.Trip) interface{} { return deref(t.DropoffLatitude) }),
		"store_and_fwd_flag": tripField(graphql.String, func(t *models.Trip) interface{} { return deref(t.StoreAndFwdFlag) }),
		"trip_duration":      tripField(graphql.Int, func(t *models.Trip) interface{} { return deref(t.TripDuration) }),
		"trip_distance":      tripField(graphql.Float, func(t *models.Trip) interface{} { return deref(t.TripDistance) }),
	},
})

var vendorType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Vendor",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.Int,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.Vendor).ID, nil
			},
		},
		"vendor_id": &graphql.Field{
			Type: graphql.Int,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.Vendor).VendorID, nil
			},
		},
	},
})

func tripField(typ graphql.Output, get func(*models.Trip) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return get(p.Source.(*models.Trip)), nil
		},
	}
}

// deref returns the pointed-to value or an untyped nil, which graphql-go
// renders as null.
func deref[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func (s *Schema) resolveAllTrips(p graphql.ResolveParams) (interface{}, error) {
	q, ok := trips.QuerierFrom(p.Context)
	if !ok {
		return nil, errNoSession
	}
	limit, offset, none, err := paging(p.Args)
	if err != nil {
		return nil, err
	}
	if none {
		return []*models.Trip{}, nil
	}

	f := trips.TripFilter{Limit: limit, Offset: offset}
	if v, ok := p.Args["vendor_id"].(int); ok {
		id := int64(v)
		f.VendorID = &id
	}
	start, hasStart := p.Args["start_date"].(time.Time)
	end, hasEnd := p.Args["end_date"].(time.Time)
	if hasStart && hasEnd {
		f.Start, f.End = &start, &end
	}

	list, err := s.repo.ListTrips(p.Context, q, f)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Trip, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}

func (s *Schema) resolveTripByID(p graphql.ResolveParams) (interface{}, error) {
	q, ok := trips.QuerierFrom(p.Context)
	if !ok {
		return nil, errNoSession
	}
	trip, err := s.repo.TripByID(p.Context, q, p.Args["id"].(string))
	if err != nil || trip == nil {
		return nil, err
	}
	return trip, nil
}

func (s *Schema) resolveAllVendors(p graphql.ResolveParams) (interface{}, error) {
	q, ok := trips.QuerierFrom(p.Context)
	if !ok {
		return nil, errNoSession
	}
	limit, offset, none, err := paging(p.Args)
	if err != nil {
		return nil, err
	}
	if none {
		return []*models.Vendor{}, nil
	}

	list, err := s.repo.ListVendors(p.Context, q, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Vendor, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}

func (s *Schema) resolveVendorByID(p graphql.ResolveParams) (interface{}, error) {
	q, ok := trips.QuerierFrom(p.Context)
	if !ok {
		return nil, errNoSession
	}
	vendor, err := s.repo.VendorByID(p.Context, q, int64(p.Args["id"].(int)))
	if err != nil || vendor == nil {
		return nil, err
	}
	return vendor, nil
}

// paging reads limit and offset. An explicit null limit means no limit.
// none is set for limit 0, which the repository would otherwise read as
// "no limit".
func paging(args map[string]interface{}) (limit, offset int, none bool, err error) {
	limit, hasLimit := args["limit"].(int)
	offset, _ = args["offset"].(int)
	if limit < 0 {
		return 0, 0, false, fmt.Errorf("limit must be non-negative, got %d", limit)
	}
	if offset < 0 {
		return 0, 0, false, fmt.Errorf("offset must be non-negative, got %d", offset)
	}
	return limit, offset, hasLimit && limit == 0, nil
}
