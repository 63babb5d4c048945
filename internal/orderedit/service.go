package orderedit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/brewloop/subswap-backend/pkg/errors"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/brewloop/subswap-backend/pkg/shopify"
)

const (
	discountDescription = "Adjusted to match subscription price"
	commitStaffNote     = "Subscription replaced automatically via webhook"
)

// Editor drives the begin/modify/commit order-edit protocol. Begin must
// precede every mutation; Commit is always the final call. There is no
// rollback: a failure mid-edit abandons the session to platform-side
// expiry rather than attempting a compensating abort.
type Editor interface {
	Begin(ctx context.Context, orderGID string) (*Session, error)
	RemoveSubscriptionItems(ctx context.Context, session *Session, targets []RemovalTarget) error
	AddReplacementVariant(ctx context.Context, sessionID, variantGID string) (string, error)
	ApplyDiscount(ctx context.Context, sessionID, lineItemID string, percent float64) error
	Commit(ctx context.Context, sessionID string) error
}

type graphqlExecutor interface {
	Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
}

type editor struct {
	gql  graphqlExecutor
	logg *logger.Logger
}

// NewEditor builds the order-edit service.
func NewEditor(gql graphqlExecutor, logg *logger.Logger) (Editor, error) {
	if gql == nil {
		return nil, fmt.Errorf("graphql executor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &editor{gql: gql, logg: logg}, nil
}

type beginResponse struct {
	OrderEditBegin struct {
		CalculatedOrder struct {
			ID        string `json:"id"`
			LineItems struct {
				Edges []struct {
					Node struct {
						ID       string `json:"id"`
						Title    string `json:"title"`
						Quantity int    `json:"quantity"`
						Variant  struct {
							ID string `json:"id"`
						} `json:"variant"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"lineItems"`
		} `json:"calculatedOrder"`
		UserErrors []shopify.UserError `json:"userErrors"`
	} `json:"orderEditBegin"`
}

// Begin opens an edit session for the order and returns its current line
// items.
func (e *editor) Begin(ctx context.Context, orderGID string) (*Session, error) {
	data, err := e.gql.Execute(ctx, beginMutation, map[string]any{"id": orderGID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeOrderEditBeginFailed, err, "beginning order edit")
	}
	var resp beginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeOrderEditBeginFailed, err, "decoding order edit begin")
	}
	if len(resp.OrderEditBegin.UserErrors) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeOrderEditBeginFailed,
			shopify.JoinUserErrors(resp.OrderEditBegin.UserErrors))
	}
	if resp.OrderEditBegin.CalculatedOrder.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeOrderEditBeginFailed, "no edit session id returned")
	}

	session := &Session{ID: resp.OrderEditBegin.CalculatedOrder.ID}
	for _, edge := range resp.OrderEditBegin.CalculatedOrder.LineItems.Edges {
		session.LineItems = append(session.LineItems, SessionLineItem{
			ID:        edge.Node.ID,
			Title:     edge.Node.Title,
			Quantity:  edge.Node.Quantity,
			VariantID: edge.Node.Variant.ID,
		})
	}
	return session, nil
}

type setQuantityResponse struct {
	OrderEditSetQuantity struct {
		UserErrors []shopify.UserError `json:"userErrors"`
	} `json:"orderEditSetQuantity"`
}

// RemoveSubscriptionItems zeroes out the quantity of each target found in
// the session, matching by numeric variant id. A target with no matching
// session line item is logged and skipped; one unmatched item must not
// abort the whole batch.
func (e *editor) RemoveSubscriptionItems(ctx context.Context, session *Session, targets []RemovalTarget) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeRemoveItemFailed, "no edit session")
	}
	for _, target := range targets {
		item, ok := findByVariant(session.LineItems, target.VariantID)
		if !ok {
			tctx := e.logg.WithFields(ctx, map[string]any{
				"variant_id": target.VariantID,
				"title":      target.Title,
			})
			e.logg.Warn(tctx, "subscription item not found in edit session; skipping")
			continue
		}

		data, err := e.gql.Execute(ctx, setQuantityMutation, map[string]any{
			"id":         session.ID,
			"lineItemId": item.ID,
			"quantity":   0,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeRemoveItemFailed, err, "removing subscription item")
		}
		var resp setQuantityResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeRemoveItemFailed, err, "decoding set quantity")
		}
		if len(resp.OrderEditSetQuantity.UserErrors) > 0 {
			return pkgerrors.New(pkgerrors.CodeRemoveItemFailed,
				shopify.JoinUserErrors(resp.OrderEditSetQuantity.UserErrors))
		}
	}
	return nil
}

type addVariantResponse struct {
	OrderEditAddVariant struct {
		CalculatedLineItem struct {
			ID string `json:"id"`
		} `json:"calculatedLineItem"`
		UserErrors []shopify.UserError `json:"userErrors"`
	} `json:"orderEditAddVariant"`
}

// AddReplacementVariant adds quantity 1 of the variant and returns the new
// calculated line item id. A missing id in the response is logged and
// returned as empty; the caller then skips the discount, which has nothing
// to target.
func (e *editor) AddReplacementVariant(ctx context.Context, sessionID, variantGID string) (string, error) {
	data, err := e.gql.Execute(ctx, addVariantMutation, map[string]any{
		"id":        sessionID,
		"variantId": variantGID,
		"quantity":  1,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeAddVariantFailed, err, "adding replacement variant")
	}
	var resp addVariantResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeAddVariantFailed, err, "decoding add variant")
	}
	if len(resp.OrderEditAddVariant.UserErrors) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeAddVariantFailed,
			shopify.JoinUserErrors(resp.OrderEditAddVariant.UserErrors))
	}
	lineItemID := resp.OrderEditAddVariant.CalculatedLineItem.ID
	if lineItemID == "" {
		e.logg.Warn(e.logg.WithField(ctx, "variant_id", variantGID),
			"add variant returned no line item id; discount will be skipped")
	}
	return lineItemID, nil
}

type addDiscountResponse struct {
	OrderEditAddLineItemDiscount struct {
		UserErrors []shopify.UserError `json:"userErrors"`
	} `json:"orderEditAddLineItemDiscount"`
}

// ApplyDiscount applies a percentage line discount with a fixed
// description. Callers only invoke it for percent > 0 and a present line
// item id; failures are theirs to treat as non-fatal.
func (e *editor) ApplyDiscount(ctx context.Context, sessionID, lineItemID string, percent float64) error {
	data, err := e.gql.Execute(ctx, addDiscountMutation, map[string]any{
		"id":         sessionID,
		"lineItemId": lineItemID,
		"discount": map[string]any{
			"description":  discountDescription,
			"percentValue": percent,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDiscountApplyFailed, err, "applying line discount")
	}
	var resp addDiscountResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDiscountApplyFailed, err, "decoding add discount")
	}
	if len(resp.OrderEditAddLineItemDiscount.UserErrors) > 0 {
		return pkgerrors.New(pkgerrors.CodeDiscountApplyFailed,
			shopify.JoinUserErrors(resp.OrderEditAddLineItemDiscount.UserErrors))
	}
	return nil
}

type commitResponse struct {
	OrderEditCommit struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
		UserErrors []shopify.UserError `json:"userErrors"`
	} `json:"orderEditCommit"`
}

// Commit finalizes the session, notifying the customer and attaching a
// staff note.
func (e *editor) Commit(ctx context.Context, sessionID string) error {
	data, err := e.gql.Execute(ctx, commitMutation, map[string]any{
		"id":             sessionID,
		"notifyCustomer": true,
		"staffNote":      commitStaffNote,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeCommitFailed, err, "committing order edit")
	}
	var resp commitResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeCommitFailed, err, "decoding commit")
	}
	if len(resp.OrderEditCommit.UserErrors) > 0 {
		return pkgerrors.New(pkgerrors.CodeCommitFailed,
			shopify.JoinUserErrors(resp.OrderEditCommit.UserErrors))
	}
	return nil
}

// findByVariant matches session line items to a variant by the trailing
// numeric id of the GID, so gid://shopify/ProductVariant/123 matches a
// webhook variant id of 123.
func findByVariant(items []SessionLineItem, variantID string) (SessionLineItem, bool) {
	want := numericID(variantID)
	if want == "" {
		return SessionLineItem{}, false
	}
	for _, item := range items {
		if numericID(item.VariantID) == want {
			return item, true
		}
	}
	return SessionLineItem{}, false
}

func numericID(gid string) string {
	gid = strings.TrimSpace(gid)
	if gid == "" {
		return ""
	}
	if idx := strings.LastIndex(gid, "/"); idx >= 0 {
		return gid[idx+1:]
	}
	return gid
}
