package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// ErrTenantNotFound is returned when a user has no tenant in the index yet,
// meaning nothing has been indexed for them.
var ErrTenantNotFound = errors.New("search: tenant not found")

// Result represents minimal fields returned by search.
type Result struct {
	JournalID string  `json:"journalId"`
	UserID    string  `json:"userId"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
}

// Searcher abstracts Weaviate interactions for search and indexing.
type Searcher interface {
	// Hybrid search over JournalEntry
	Search(ctx context.Context, userID, query string, vec []float32, topK int, alpha float32) ([]Result, error)

	// Index upsert operation (no-op for implementations that don't support it)
	UpsertJournal(ctx context.Context, journalID string, vec []float32, payload map[string]interface{}) error

	// Deletion helper (best-effort; ignores not found)
	DeleteJournal(ctx context.Context, userID, journalID string) error
}

// weaviateSearcher implements Searcher using weaviate-go-client.
type weaviateSearcher struct {
	client *weaviate.Client
}

// NewWeaviateSearcher constructs a Searcher for baseURL host.
func NewWeaviateSearcher(baseURL string) (Searcher, error) {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &weaviateSearcher{client: cl}, nil
}

// HealthPing implements health.HealthPinger using the readiness endpoint.
func (w *weaviateSearcher) HealthPing(ctx context.Context) error {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return errors.New("weaviate not ready")
	}
	return nil
}

// ensureTenant creates the tenant for the given class if it does not already exist.
func (w *weaviateSearcher) ensureTenant(ctx context.Context, className, tenant string) {
	if tenant == "" {
		return
	}
	// Attempt creation; ignore errors (already exists, multi-tenant disabled, etc.)
	t := models.Tenant{Name: tenant}
	_ = w.client.Schema().TenantsCreator().WithClassName(className).WithTenants(t).Do(ctx)
}

// UpsertJournal inserts or updates a single JournalEntry object.
func (w *weaviateSearcher) UpsertJournal(ctx context.Context, journalID string, vec []float32, payload map[string]interface{}) error {
	if w == nil || w.client == nil {
		return fmt.Errorf("weaviate client not initialised")
	}

	tenant, _ := payload["userId"].(string)
	w.ensureTenant(ctx, "JournalEntry", tenant)

	_, err := w.client.Data().Creator().WithClassName("JournalEntry").WithTenant(tenant).WithID(journalID).WithProperties(payload).WithVector(vec).Do(ctx)
	return err
}

// DeleteJournal removes a JournalEntry object from Weaviate for the given tenant.
func (w *weaviateSearcher) DeleteJournal(ctx context.Context, userID, journalID string) error {
	if w == nil || w.client == nil || userID == "" || journalID == "" {
		return nil
	}
	// Best-effort; ignore errors to avoid coupling API latency to index cleanup
	_ = w.client.Data().Deleter().WithClassName("JournalEntry").WithTenant(userID).WithID(journalID).Do(ctx)
	return nil
}

func (w *weaviateSearcher) Search(ctx context.Context, userID, query string, vec []float32, topK int, alpha float32) ([]Result, error) {
	hy := (&gql.HybridArgumentBuilder{}).
		WithQuery(query).
		WithVector(vec).
		WithAlpha(alpha).
		WithProperties([]string{"title", "content"})

	where := filters.Where().WithPath([]string{"userId"}).WithOperator(filters.Equal).WithValueText(userID)

	req := w.client.GraphQL().Get().
		WithClassName("JournalEntry").
		WithWhere(where).
		WithHybrid(hy).
		WithLimit(topK).
		WithFields(
			gql.Field{Name: "journalId"},
			gql.Field{Name: "userId"},
			gql.Field{Name: "title"},
			gql.Field{Name: "content"},
			gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "score"}}},
		)
	// Scope the query to the tenant (user) when multi-tenancy is enabled.
	if userID != "" {
		req = req.WithTenant(userID)
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		if isTenantNotFound(resp.Errors) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("weaviate graphql: %s", formatGraphQLErrors(resp.Errors))
	}

	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil // unexpected shape, treat as no results
	}
	entVal := getData["JournalEntry"]
	if entVal == nil {
		return []Result{}, nil // no hits
	}

	raw, ok := entVal.([]interface{})
	if !ok {
		return nil, nil // unexpected type
	}

	out := make([]Result, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var score float64
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			switch v := add["score"].(type) {
			case float64:
				score = v
			case string:
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					score = f
				}
			}
		}
		r := Result{Score: score}
		r.JournalID, _ = m["journalId"].(string)
		r.UserID, _ = m["userId"].(string)
		r.Title, _ = m["title"].(string)
		r.Content, _ = m["content"].(string)
		out = append(out, r)
	}
	return out, nil
}

// helper to detect tenant not found error
func isTenantNotFound(errs interface{}) bool {
	switch v := errs.(type) {
	case []interface{}:
		for _, e := range v {
			if tenantMsg(e) {
				return true
			}
		}
	case []error:
		for _, e := range v {
			if strings.Contains(e.Error(), "tenant not found") {
				return true
			}
		}
	}
	// generic string check fallback
	return strings.Contains(strings.ToLower(fmt.Sprintf("%v", errs)), "tenant not found")
}

func tenantMsg(e interface{}) bool {
	switch m := e.(type) {
	case map[string]interface{}:
		if msg, ok := m["message"].(string); ok {
			return strings.Contains(strings.ToLower(msg), "tenant not found")
		}
	case string:
		return strings.Contains(strings.ToLower(m), "tenant not found")
	}
	return false
}

// formatGraphQLErrors returns compact string with messages extracted for logging.
func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
