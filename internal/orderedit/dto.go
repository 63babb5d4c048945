package orderedit

// Session is a platform-managed order-edit session (calculated order). It
// must be begun before mutation and committed to take effect; an abandoned
// session expires on the platform side.
type Session struct {
	ID        string
	LineItems []SessionLineItem
}

// SessionLineItem is one line item inside an edit session.
type SessionLineItem struct {
	ID        string
	Title     string
	Quantity  int
	VariantID string
}

// RemovalTarget identifies a subscription line item to zero out, matched
// against session line items by numeric variant id.
type RemovalTarget struct {
	VariantID string
	Title     string
}
