package product

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brewloop/subswap-backend/pkg/config"
	pkgerrors "github.com/brewloop/subswap-backend/pkg/errors"
	"github.com/brewloop/subswap-backend/pkg/logger"
)

// Service exposes catalog reads used by the replacement pipeline.
type Service interface {
	// FetchReplacementCandidates loads tagged products fresh from the
	// catalog. Results are never cached across jobs; the catalog may change
	// between webhooks.
	FetchReplacementCandidates(ctx context.Context) ([]Product, error)
}

type graphqlExecutor interface {
	Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
}

const productsByTagQuery = `
query ProductsByTag($query: String!) {
  products(first: 50, query: $query) {
    edges {
      node {
        id
        title
        tags
        variants(first: 50) {
          edges {
            node {
              id
              title
              price
              selectedOptions {
                name
                value
              }
            }
          }
        }
      }
    }
  }
}`

type service struct {
	gql  graphqlExecutor
	tag  string
	logg *logger.Logger
}

// NewService builds the catalog service for the configured replacement tag.
func NewService(gql graphqlExecutor, cfg config.ShopifyConfig, logg *logger.Logger) (Service, error) {
	if gql == nil {
		return nil, fmt.Errorf("graphql executor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	tag := strings.TrimSpace(cfg.ReplacementTag)
	if tag == "" {
		return nil, fmt.Errorf("replacement tag required")
	}
	return &service{gql: gql, tag: tag, logg: logg}, nil
}

type productsResponse struct {
	Products struct {
		Edges []struct {
			Node struct {
				ID       string   `json:"id"`
				Title    string   `json:"title"`
				Tags     []string `json:"tags"`
				Variants struct {
					Edges []struct {
						Node struct {
							ID              string           `json:"id"`
							Title           string           `json:"title"`
							Price           string           `json:"price"`
							SelectedOptions []SelectedOption `json:"selectedOptions"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"variants"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

func (s *service) FetchReplacementCandidates(ctx context.Context) ([]Product, error) {
	data, err := s.gql.Execute(ctx, productsByTagQuery, map[string]any{
		"query": fmt.Sprintf("tag:%s", s.tag),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching replacement candidates")
	}

	var resp productsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding product catalog")
	}

	products := make([]Product, 0, len(resp.Products.Edges))
	for _, edge := range resp.Products.Edges {
		p := Product{
			ID:    edge.Node.ID,
			Title: edge.Node.Title,
			Tags:  edge.Node.Tags,
		}
		for _, ve := range edge.Node.Variants.Edges {
			p.Variants = append(p.Variants, Variant{
				ID:              ve.Node.ID,
				Title:           ve.Node.Title,
				Price:           ve.Node.Price,
				ProductTitle:    edge.Node.Title,
				SelectedOptions: ve.Node.SelectedOptions,
			})
		}
		products = append(products, p)
	}
	s.logg.Info(s.logg.WithField(ctx, "candidates", len(products)), "fetched replacement candidates")
	return products, nil
}
