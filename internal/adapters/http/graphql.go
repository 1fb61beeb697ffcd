package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema over the interaction machine.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	stateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "State",
		Fields: graphql.Fields{
			"version":         &graphql.Field{Type: graphql.Int},
			"drawingActive":   &graphql.Field{Type: graphql.Boolean},
			"areaOfInterest":  &graphql.Field{Type: graphql.String, Description: "GeoJSON Polygon"},
			"areaMeasurement": &graphql.Field{Type: graphql.Float, Description: "Square meters"},
			"activeEndpoint":  &graphql.Field{Type: graphql.String},
			"endpoints":       &graphql.Field{Type: graphql.NewList(graphql.String)},
			"queryPhase":      &graphql.Field{Type: graphql.String},
			"requestToken":    &graphql.Field{Type: graphql.Int},
			"payload":         &graphql.Field{Type: graphql.String, Description: "Raw JSON result"},
			"errorMessage":    &graphql.Field{Type: graphql.String},
			"captureError":    &graphql.Field{Type: graphql.String},
			"pong":            &graphql.Field{Type: graphql.Boolean},
		},
	})

	// submit applies ev and resolves to the resulting state.
	submit := func(p graphql.ResolveParams, ev domain.Event) (interface{}, error) {
		snap, err := deps.Machine.Submit(p.Context, ev)
		if err != nil {
			return nil, err
		}
		return stateFields(snap), nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"state": &graphql.Field{
				Type:        stateType,
				Description: "Current interaction state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return stateFields(deps.Machine.Snapshot()), nil
				},
			},
			"endpoints": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Configured endpoint ids in order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Machine.Endpoints(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"startDrawing": &graphql.Field{
				Type: stateType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return submit(p, domain.StartDrawing{})
				},
			},
			"stopDrawing": &graphql.Field{
				Type: stateType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return submit(p, domain.StopDrawing{})
				},
			},
			"selectEndpoint": &graphql.Field{
				Type: stateType,
				Args: graphql.FieldConfigArgument{
					"endpoint": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return submit(p, domain.EndpointChanged{EndpointID: p.Args["endpoint"].(string)})
				},
			},
			"capturePolygon": &graphql.Field{
				Type:        stateType,
				Description: "Hand over a finished polygon; geometry is GeoJSON text",
				Args: graphql.FieldConfigArgument{
					"geometry": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ring, err := geospatial.ParsePolygon([]byte(p.Args["geometry"].(string)))
					if err != nil {
						return nil, err
					}
					return submit(p, domain.PolygonCaptured{Ring: ring})
				},
			},
			"clearError": &graphql.Field{
				Type: stateType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return submit(p, domain.ClearError{})
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// stateFields flattens a snapshot into GraphQL field values.
func stateFields(s domain.Snapshot) map[string]interface{} {
	out := map[string]interface{}{
		"version":        int(s.Version),
		"drawingActive":  s.DrawingActive,
		"activeEndpoint": s.ActiveEndpoint,
		"endpoints":      s.Endpoints,
		"queryPhase":     string(s.QueryPhase),
		"requestToken":   int(s.RequestToken),
		"pong":           s.Pong,
	}
	if s.AreaOfInterest != nil {
		if data, err := s.AreaOfInterest.MarshalJSON(); err == nil {
			out["areaOfInterest"] = string(data)
		}
	}
	if s.AreaMeasurement != nil {
		out["areaMeasurement"] = *s.AreaMeasurement
	}
	if s.Payload != nil {
		out["payload"] = string(s.Payload)
	}
	if s.ErrorMessage != nil {
		out["errorMessage"] = *s.ErrorMessage
	}
	if s.CaptureError != nil {
		out["captureError"] = *s.CaptureError
	}
	return out
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
