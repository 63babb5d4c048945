package product

// SelectedOption is one name/value pair on a variant, e.g. Size=250g.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variant is one purchasable catalog variant.
type Variant struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Price           string           `json:"price"`
	ProductTitle    string           `json:"product_title"`
	SelectedOptions []SelectedOption `json:"selected_options"`
}

// Product is a catalog product with its variants in catalog order.
type Product struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Tags     []string  `json:"tags"`
	Variants []Variant `json:"variants"`
}

// ReplacementSource carries the attributes of a subscription line item that
// drive replacement selection: structured variant options when the payload
// has them, otherwise the free-text variant title.
type ReplacementSource struct {
	VariantTitle string
	Options      []SelectedOption
}
