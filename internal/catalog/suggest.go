package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Suggester interface {
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
}

// LocalSuggester matches name prefixes over the distinct product list already in state.
type LocalSuggester struct {
	Names func() []models.Product
}

func (s LocalSuggester) Suggest(_ context.Context, prefix string, limit int) ([]string, error) {
	p := strings.ToLower(strings.TrimSpace(prefix))
	seen := map[string]bool{}
	out := []string{}
	for _, prod := range s.Names() {
		if seen[prod.Name] || !strings.HasPrefix(strings.ToLower(prod.Name), p) {
			continue
		}
		seen[prod.Name] = true
		out = append(out, prod.Name)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type ESConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

func NewESClient(cfg ESConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return client, nil
}

// ESSuggester asks Elasticsearch for product names, falling back when it is unavailable.
type ESSuggester struct {
	client   *elasticsearch.Client
	index    string
	fallback Suggester
}

func NewESSuggester(client *elasticsearch.Client, index string, fallback Suggester) *ESSuggester {
	return &ESSuggester{client: client, index: index, fallback: fallback}
}

func (s *ESSuggester) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.suggest")

	names, err := s.search(ctx, prefix, limit)
	if err != nil {
		l.Warn("suggest_es_failed", "error", err)
		if s.fallback != nil {
			return s.fallback.Suggest(ctx, prefix, limit)
		}
		return nil, err
	}
	return names, nil
}

func (s *ESSuggester) search(ctx context.Context, prefix string, limit int) ([]string, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  prefix,
				"type":   "bool_prefix",
				"fields": []string{"name", "name._2gram", "name._3gram"},
			},
		},
		"_source": []string{"name"},
		"size":    limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: %s: %s", res.Status(), bytes.TrimSpace(msg))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Name string `json:"name"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	seen := map[string]bool{}
	out := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		if n := h.Source.Name; n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}
