package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"mercadito/internal/domain/entity"
	"mercadito/pkg/errors"
)

// Recommender asks a hosted Gemini model to rank catalog products against a
// search query. Output is schema-constrained JSON; the result is best-effort
// ranking, not authoritative filtering.
type Recommender struct {
	client *genai.Client
	model  string
}

func NewRecommender(ctx context.Context, apiKey, model string) (*Recommender, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &Recommender{
		client: client,
		model:  model,
	}, nil
}

var responseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"price":       {Type: genai.TypeNumber},
			"category":    {Type: genai.TypeString},
		},
		Required: []string{"name", "description", "price", "category"},
	},
}

func (r *Recommender) Recommend(ctx context.Context, searchQuery string, products []entity.Product, categories []string) ([]entity.Product, error) {
	prompt := buildPrompt(searchQuery, products, categories)

	result, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return nil, errors.CollaboratorUnavailable("Recommendation model call failed", "", err)
	}

	var recommended []entity.Product
	if err := json.Unmarshal([]byte(result.Text()), &recommended); err != nil {
		return nil, errors.CollaboratorUnavailable("Recommendation model returned malformed output", "", err)
	}

	return recommended, nil
}

func buildPrompt(searchQuery string, products []entity.Product, categories []string) string {
	var b strings.Builder
	b.WriteString("You are a product recommendation expert. Given a user's search query and a list of available products, you will recommend products that are relevant to the search query.\n\n")
	fmt.Fprintf(&b, "Search Query: %s\n\n", searchQuery)
	b.WriteString("Available Products:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "- Name: %s, Description: %s, Price: %g, Category: %s\n", p.Name, p.Description, p.Price, p.Category)
	}
	fmt.Fprintf(&b, "\nProduct Categories: %s\n\n", strings.Join(categories, ", "))
	b.WriteString("Based on the search query, recommend products from the list of available products. Only return products that are thematically related to the search query. Do not recommend products that are not related to the search query. Consider product categories to help narrow down the recommendations.\n\nReturn the recommended products in JSON format.\n")
	return b.String()
}
