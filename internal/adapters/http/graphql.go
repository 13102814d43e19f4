package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/ibonlg/routeshape/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ShapePoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	shapeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Shape",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"feed_slug":     &graphql.Field{Type: graphql.String},
			"shape_key":     &graphql.Field{Type: graphql.String},
			"format":        &graphql.Field{Type: graphql.String},
			"encoded":       &graphql.Field{Type: graphql.String},
			"point_count":   &graphql.Field{Type: graphql.Int},
			"length_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	connectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Connection",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"feed_slug":        &graphql.Field{Type: graphql.String},
			"from":             &graphql.Field{Type: graphql.String},
			"to":               &graphql.Field{Type: graphql.String},
			"duration_seconds": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"shape": &graphql.Field{
				Type:        shapeType,
				Description: "Get a shape by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Shapes.GetByID(p.Context, id)
				},
			},
			"shapeByKey": &graphql.Field{
				Type:        shapeType,
				Description: "Get a shape by feed slug and shape key",
				Args: graphql.FieldConfigArgument{
					"feed_slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"shape_key": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					slug := p.Args["feed_slug"].(string)
					key := p.Args["shape_key"].(string)
					return deps.Shapes.GetByKey(p.Context, slug, key)
				},
			},
			"feedShapes": &graphql.Field{
				Type:        graphql.NewList(shapeType),
				Description: "List shapes for a feed",
				Args: graphql.FieldConfigArgument{
					"feed_slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"offset":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					slug := p.Args["feed_slug"].(string)
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					shapes, _, err := deps.Shapes.ListByFeed(p.Context, slug, offset, limit)
					return shapes, err
				},
			},
			"feedConnections": &graphql.Field{
				Type:        graphql.NewList(connectionType),
				Description: "List connections for a feed",
				Args: graphql.FieldConfigArgument{
					"feed_slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"offset":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					slug := p.Args["feed_slug"].(string)
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					conns, _, err := deps.Connections.ListByFeed(p.Context, slug, offset, limit)
					return conns, err
				},
			},
			"decodeShape": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "Decode a polyline6 string into points",
				Args: graphql.FieldConfigArgument{
					"encoded": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					encoded := p.Args["encoded"].(string)
					return deps.Shapes.Decode("graphql", encoded)
				},
			},
			"shapePoints": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "Decoded point sequence of a stored shape",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					shape, err := deps.Shapes.GetByID(p.Context, id)
					if err != nil {
						return nil, err
					}
					return deps.Shapes.Points(shape)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
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
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}

var _ = domain.Shape{}
