package enums

// Only active products can be added to a cart or ordered.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusDraft    ProductStatus = "draft"
)

var allProductStatuses = []ProductStatus{ProductStatusActive, ProductStatusInactive, ProductStatusDraft}

func (p ProductStatus) String() string { return string(p) }

func (p ProductStatus) IsValid() bool { return oneOf(p, allProductStatuses) }
