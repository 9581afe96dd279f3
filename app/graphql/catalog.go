// Package graphql exposes the catalog as a read-only GraphQL schema.
//
//	{ products(category: 2, page: 1, limit: 10) { id name price stock category { name } } }
package graphql

import (
	"errors"

	"github.com/graphql-go/graphql"
	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	gql "github.com/shashiranjanraj/kashvi-shop/pkg/graphql"
)

var categoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Category",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"price": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.Int),
			Description: "Price in minor currency units.",
		},
		"stock": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"category": &graphql.Field{
			Type: categoryType,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if prod, ok := p.Source.(models.Product); ok && prod.Category != nil {
					return *prod.Category, nil
				}
				return nil, nil
			},
		},
	},
})

// NewSchema builds the catalog schema on top of catalog.
func NewSchema(catalog *services.CatalogService) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"categories": &graphql.Field{
				Type: graphql.NewList(categoryType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return catalog.ListCategories(p.Context)
				},
			},
			"category": &graphql.Field{
				Type: categoryType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, err := idArg(p)
					if err != nil {
						return nil, err
					}
					return nilIfMissing(catalog.ShowCategory(p.Context, id))
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.Int},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					var f repositories.ProductFilter
					if c, ok := p.Args["category"].(int); ok && c > 0 {
						f.CategoryID = uint(c)
					}
					f.Search, _ = p.Args["search"].(string)
					page, _ := p.Args["page"].(int)
					limit, _ := p.Args["limit"].(int)

					products, _, err := catalog.ListProducts(p.Context, f, page, limit)
					return products, err
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, err := idArg(p)
					if err != nil {
						return nil, err
					}
					return nilIfMissing(catalog.ShowProduct(p.Context, id))
				},
			},
		},
	})
	return gql.NewSchema(query)
}

func idArg(p graphql.ResolveParams) (uint, error) {
	id, ok := p.Args["id"].(int)
	if !ok || id < 1 {
		return 0, errors.New("id must be a positive integer")
	}
	return uint(id), nil
}

// nilIfMissing resolves a missing record to null rather than an error.
func nilIfMissing[T any](v T, err error) (any, error) {
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
