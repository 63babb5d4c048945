package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/brewloop/subswap-backend/pkg/db/models"
	"github.com/brewloop/subswap-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS order_edit_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  step TEXT NOT NULL,
  payload TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestCreateAndMarkFailed(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	ctx := context.Background()

	payload, err := json.Marshal(map[string]any{"id": 100})
	require.NoError(t, err)

	record, err := repo.Create(ctx, &models.OrderEditLog{
		OrderID: "gid://shopify/Order/100",
		Status:  enums.OrderEditStatusSuccess,
		Step:    enums.StepCheckSubscription,
		Payload: payload,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.ID)

	require.NoError(t, repo.MarkFailed(ctx, record.ID, enums.StepAddReplacement))

	records, err := repo.FindByOrderID(ctx, "gid://shopify/Order/100")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, enums.OrderEditStatusFail, records[0].Status)
	assert.Equal(t, enums.StepAddReplacement, records[0].Step)
}

func TestMarkFailedUnknownRecord(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))

	err := repo.MarkFailed(context.Background(), uuid.New(), enums.StepCommitOrderEdit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFindByOrderIDFiltersByOrder(t *testing.T) {
	repo := NewRepository(setupAuditTestDB(t))
	ctx := context.Background()

	for _, orderID := range []string{"gid://shopify/Order/100", "gid://shopify/Order/200"} {
		_, err := repo.Create(ctx, &models.OrderEditLog{
			OrderID: orderID,
			Status:  enums.OrderEditStatusSuccess,
			Step:    enums.StepCheckSubscription,
		})
		require.NoError(t, err)
	}

	records, err := repo.FindByOrderID(ctx, "gid://shopify/Order/100")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "gid://shopify/Order/100", records[0].OrderID)
}
