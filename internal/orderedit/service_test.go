package orderedit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	pkgerrors "github.com/brewloop/subswap-backend/pkg/errors"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	query string
	vars  map[string]any
}

type scriptedExecutor struct {
	calls     []call
	responses []json.RawMessage
	errs      []error
}

func (s *scriptedExecutor) Execute(_ context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, call{query: query, vars: variables})
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	if err != nil {
		return nil, err
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return json.RawMessage(`{}`), nil
}

func testEditor(t *testing.T, gql graphqlExecutor) Editor {
	t.Helper()
	e, err := NewEditor(gql, logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)
	return e
}

func TestBeginReturnsSessionWithLineItems(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditBegin": {
			"calculatedOrder": {
				"id": "gid://shopify/CalculatedOrder/9",
				"lineItems": {"edges": [
					{"node": {"id": "gid://shopify/CalculatedLineItem/1", "title": "Coffee Subscription", "quantity": 1, "variant": {"id": "gid://shopify/ProductVariant/10"}}}
				]}
			},
			"userErrors": []
		}
	}`)}}

	session, err := testEditor(t, gql).Begin(context.Background(), "gid://shopify/Order/100")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/CalculatedOrder/9", session.ID)
	require.Len(t, session.LineItems, 1)
	assert.Equal(t, "gid://shopify/ProductVariant/10", session.LineItems[0].VariantID)
	assert.Equal(t, map[string]any{"id": "gid://shopify/Order/100"}, gql.calls[0].vars)
}

func TestBeginFailsWithoutSessionID(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditBegin": {"calculatedOrder": {"id": ""}, "userErrors": []}
	}`)}}

	_, err := testEditor(t, gql).Begin(context.Background(), "gid://shopify/Order/100")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeOrderEditBeginFailed, typed.Code())
}

func TestBeginSurfacesUserErrors(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditBegin": {"calculatedOrder": {"id": ""}, "userErrors": [{"field": ["id"], "message": "Order not found"}]}
	}`)}}

	_, err := testEditor(t, gql).Begin(context.Background(), "gid://shopify/Order/100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Order not found")
}

func TestRemoveSubscriptionItemsMatchesByNumericVariantID(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditSetQuantity": {"userErrors": []}
	}`)}}
	session := &Session{
		ID: "gid://shopify/CalculatedOrder/9",
		LineItems: []SessionLineItem{
			{ID: "gid://shopify/CalculatedLineItem/1", VariantID: "gid://shopify/ProductVariant/10"},
			{ID: "gid://shopify/CalculatedLineItem/2", VariantID: "gid://shopify/ProductVariant/20"},
		},
	}

	// Webhook-side variant ids are bare numerics; they must still match.
	err := testEditor(t, gql).RemoveSubscriptionItems(context.Background(), session, []RemovalTarget{
		{VariantID: "10", Title: "Coffee Subscription"},
	})
	require.NoError(t, err)
	require.Len(t, gql.calls, 1)
	assert.Equal(t, "gid://shopify/CalculatedLineItem/1", gql.calls[0].vars["lineItemId"])
	assert.Equal(t, 0, gql.calls[0].vars["quantity"])
}

func TestRemoveSubscriptionItemsSkipsUnmatchedTargets(t *testing.T) {
	gql := &scriptedExecutor{}
	session := &Session{
		ID: "gid://shopify/CalculatedOrder/9",
		LineItems: []SessionLineItem{
			{ID: "gid://shopify/CalculatedLineItem/1", VariantID: "gid://shopify/ProductVariant/10"},
		},
	}

	err := testEditor(t, gql).RemoveSubscriptionItems(context.Background(), session, []RemovalTarget{
		{VariantID: "999", Title: "Unknown"},
	})
	require.NoError(t, err)
	assert.Empty(t, gql.calls, "unmatched targets must not issue mutations")
}

func TestRemoveSubscriptionItemsAbortsOnUserError(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditSetQuantity": {"userErrors": [{"field": [], "message": "quantity locked"}]}
	}`)}}
	session := &Session{
		ID:        "gid://shopify/CalculatedOrder/9",
		LineItems: []SessionLineItem{{ID: "li1", VariantID: "10"}},
	}

	err := testEditor(t, gql).RemoveSubscriptionItems(context.Background(), session, []RemovalTarget{{VariantID: "10"}})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeRemoveItemFailed, typed.Code())
}

func TestAddReplacementVariantReturnsLineItemID(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditAddVariant": {"calculatedLineItem": {"id": "gid://shopify/CalculatedLineItem/7"}, "userErrors": []}
	}`)}}

	id, err := testEditor(t, gql).AddReplacementVariant(context.Background(), "sess", "gid://shopify/ProductVariant/21")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/CalculatedLineItem/7", id)
	assert.Equal(t, 1, gql.calls[0].vars["quantity"])
}

func TestAddReplacementVariantMissingIDIsNotAnError(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditAddVariant": {"calculatedLineItem": {"id": ""}, "userErrors": []}
	}`)}}

	id, err := testEditor(t, gql).AddReplacementVariant(context.Background(), "sess", "gid://shopify/ProductVariant/21")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestAddReplacementVariantUserErrorAborts(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditAddVariant": {"calculatedLineItem": {"id": ""}, "userErrors": [{"field": [], "message": "variant is out of stock"}]}
	}`)}}

	_, err := testEditor(t, gql).AddReplacementVariant(context.Background(), "sess", "gid://shopify/ProductVariant/21")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAddVariantFailed, typed.Code())
}

func TestApplyDiscountSendsFixedDescription(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditAddLineItemDiscount": {"userErrors": []}
	}`)}}

	err := testEditor(t, gql).ApplyDiscount(context.Background(), "sess", "li7", 25)
	require.NoError(t, err)
	discount, ok := gql.calls[0].vars["discount"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Adjusted to match subscription price", discount["description"])
	assert.Equal(t, 25.0, discount["percentValue"])
}

func TestCommitNotifiesCustomerWithStaffNote(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditCommit": {"order": {"id": "gid://shopify/Order/100"}, "userErrors": []}
	}`)}}

	err := testEditor(t, gql).Commit(context.Background(), "sess")
	require.NoError(t, err)
	assert.Equal(t, true, gql.calls[0].vars["notifyCustomer"])
	assert.Equal(t, "Subscription replaced automatically via webhook", gql.calls[0].vars["staffNote"])
}

func TestCommitUserErrorFails(t *testing.T) {
	gql := &scriptedExecutor{responses: []json.RawMessage{json.RawMessage(`{
		"orderEditCommit": {"order": {"id": ""}, "userErrors": [{"field": [], "message": "edit session expired"}]}
	}`)}}

	err := testEditor(t, gql).Commit(context.Background(), "sess")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeCommitFailed, typed.Code())
}

func TestTransportErrorsAreWrapped(t *testing.T) {
	gql := &scriptedExecutor{errs: []error{errors.New("connection reset")}}

	_, err := testEditor(t, gql).Begin(context.Background(), "gid://shopify/Order/100")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeOrderEditBeginFailed, typed.Code())
	assert.ErrorContains(t, err, "ORDER_EDIT_BEGIN_FAILED")
}

func TestNumericID(t *testing.T) {
	assert.Equal(t, "123", numericID("gid://shopify/ProductVariant/123"))
	assert.Equal(t, "123", numericID("123"))
	assert.Equal(t, "", numericID(""))
	assert.Equal(t, "", numericID("  "))
}
