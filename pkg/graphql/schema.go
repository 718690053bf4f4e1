// Package graphql exposes a read-only catalog query. Mutations stay on
// the REST surface where the auth middleware already gates them.
package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/services"
	"github.com/lacocina/comanda/pkg/response"
)

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.Int},
		"name":        &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"price":       &graphql.Field{Type: graphql.Float},
		"stock":       &graphql.Field{Type: graphql.Int},
		"category":    &graphql.Field{Type: graphql.String},
		"active":      &graphql.Field{Type: graphql.Boolean},
		"image":       &graphql.Field{Type: graphql.String},
	},
})

// NewSchema builds the catalog query schema over a CatalogStore.
func NewSchema(catalog services.CatalogStore) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					product, err := catalog.Find(uint(id))
					if err != nil {
						return nil, nil
					}
					return product, nil
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					filter := services.ProductFilter{}
					if c, ok := p.Args["category"].(string); ok {
						filter.Category = c
					}
					if s, ok := p.Args["search"].(string); ok {
						filter.Search = s
					}
					active := true
					filter.Active = &active
					limit, _ := p.Args["limit"].(int)
					products, _, err := catalog.List(filter, 1, limit)
					return products, err
				},
			},
			"categories": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return models.Categories, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// Handler serves queries over GET (?query=) and POST bodies.
func Handler(schema graphql.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if r.Method == http.MethodPost {
			var body struct {
				Query string `json:"query"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Query != "" {
				query = body.Query
			}
		}
		if query == "" {
			response.Error(w, http.StatusBadRequest, "query is required")
			return
		}

		result := graphql.Do(graphql.Params{Schema: schema, RequestString: query})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result) //nolint:errcheck
	}
}
