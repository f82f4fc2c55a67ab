package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/utils"
)

func newTestIngestionRun(owner string, items ...models.InvoiceItem) *models.IngestionRun {
	return &models.IngestionRun{
		ID:          utils.GenerateUUID(),
		OwnerUserID: owner,
		FileName:    "invoice.pdf",
		Status:      models.IngestionStatusProcessing,
		Items:       items,
	}
}

func TestIngestionRunRepository_CreateWithItemsPersistsBoth(t *testing.T) {
	newTestDB(t)
	repo := NewIngestionRunRepository()
	ctx := context.Background()

	run := newTestIngestionRun("owner-1",
		models.InvoiceItem{ID: utils.GenerateUUID(), Description: "Widget", Quantity: 2, UnitPriceCents: 1000, TotalCents: 2000},
		models.InvoiceItem{ID: utils.GenerateUUID(), Description: "Delivery", Quantity: 1, UnitPriceCents: 500, TotalCents: 500},
	)

	require.NoError(t, repo.CreateWithItems(ctx, run))

	got, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	for _, item := range got.Items {
		assert.Equal(t, run.ID, item.IngestionRunID)
	}
}

func TestIngestionRunRepository_CreateWithItems_NoItemsIsFine(t *testing.T) {
	newTestDB(t)
	repo := NewIngestionRunRepository()
	ctx := context.Background()

	run := newTestIngestionRun("owner-1")
	require.NoError(t, repo.CreateWithItems(ctx, run))

	got, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestIngestionRunRepository_ListForOwnerScopesAndDefaultsLimit(t *testing.T) {
	newTestDB(t)
	repo := NewIngestionRunRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestIngestionRun("owner-1")))
	require.NoError(t, repo.Create(ctx, newTestIngestionRun("owner-1")))
	require.NoError(t, repo.Create(ctx, newTestIngestionRun("owner-2")))

	list, err := repo.ListForOwner(ctx, "owner-1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestIngestionRunRepository_UpdateStatusSetsErrorMessage(t *testing.T) {
	newTestDB(t)
	repo := NewIngestionRunRepository()
	ctx := context.Background()

	run := newTestIngestionRun("owner-1")
	require.NoError(t, repo.Create(ctx, run))

	errMsg := "parse failed"
	require.NoError(t, repo.UpdateStatus(ctx, run.ID, models.IngestionStatusFailed, &errMsg))

	got, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IngestionStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, errMsg, *got.ErrorMessage)
}
