package search

import (
	"context"
	"fmt"
	"time"

	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// BootstrapWeaviate ensures the JournalEntry class exists with multi-tenancy
// enabled. In dev/e2e, if the class exists without MT enabled, it is dropped
// and recreated.
func BootstrapWeaviate(ctx context.Context, baseURL string) error {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return err
	}

	// Short timeout to avoid long hangs during CI/e2e
	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	entry := &models.Class{
		Class:      "JournalEntry",
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "journalId", DataType: []string{"uuid"}},
			{Name: "userId", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "creationTime", DataType: []string{"date"}},
		},
		MultiTenancyConfig: &models.MultiTenancyConfig{Enabled: true},
	}

	if err := ensureMTClass(cctx, cl, entry); err != nil {
		return fmt.Errorf("bootstrap JournalEntry: %w", err)
	}
	return nil
}

func ensureMTClass(ctx context.Context, cl *weaviate.Client, desired *models.Class) error {
	ex, err := cl.Schema().ClassGetter().WithClassName(desired.Class).Do(ctx)
	if err == nil && ex != nil {
		// If existing class has MT enabled, nothing to do.
		if ex.MultiTenancyConfig != nil && ex.MultiTenancyConfig.Enabled {
			return nil
		}
		// Drop and recreate with MT enabled (safe in dev/e2e)
		if err := cl.Schema().ClassDeleter().WithClassName(desired.Class).Do(ctx); err != nil {
			return fmt.Errorf("delete class %s: %w", desired.Class, err)
		}
	}
	if err := cl.Schema().ClassCreator().WithClass(desired).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", desired.Class, err)
	}
	return nil
}
