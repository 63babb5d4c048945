package enums

// OrderEditStatus tracks the outcome recorded on an audit row. Rows are
// created optimistically as SUCCESS and flipped to FAIL at most once.
type OrderEditStatus string

const (
	OrderEditStatusSuccess OrderEditStatus = "SUCCESS"
	OrderEditStatusFail    OrderEditStatus = "FAIL"
)

// OrderEditStep labels the pipeline phase that was in flight when an audit
// row was last written.
type OrderEditStep string

const (
	StepCheckSubscription  OrderEditStep = "CHECK_SUBSCRIPTION"
	StepBeginOrderEdit     OrderEditStep = "BEGIN_ORDER_EDIT"
	StepFetchProducts      OrderEditStep = "FETCH_PRODUCTS"
	StepPickReplacement    OrderEditStep = "PICK_REPLACEMENT"
	StepRemoveSubscription OrderEditStep = "REMOVE_SUBSCRIPTION"
	StepAddReplacement     OrderEditStep = "ADD_REPLACEMENT"
	StepApplyDiscount      OrderEditStep = "APPLY_DISCOUNT"
	StepCommitOrderEdit    OrderEditStep = "COMMIT_ORDER_EDIT"
)
