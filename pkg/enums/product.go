package enums

// ProductStatus is the free-text research lifecycle of a captured product.
// Dashboards may write values outside this list.
type ProductStatus string

const (
	ProductStatusEditing   ProductStatus = "Editing"
	ProductStatusTesting   ProductStatus = "Testing"
	ProductStatusApproved  ProductStatus = "Approved"
	ProductStatusDiscarded ProductStatus = "Discarded"
)

func (s ProductStatus) String() string {
	return string(s)
}
