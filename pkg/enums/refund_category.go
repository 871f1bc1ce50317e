package enums

type RefundCategory string

const (
	RefundCategoryDuplicate      RefundCategory = "duplicate"
	RefundCategoryNotAsDescribed RefundCategory = "not_as_described"
	RefundCategoryOther          RefundCategory = "other"
)

var allRefundCategories = []RefundCategory{RefundCategoryDuplicate, RefundCategoryNotAsDescribed, RefundCategoryOther}

func (r RefundCategory) String() string { return string(r) }

func (r RefundCategory) IsValid() bool { return oneOf(r, allRefundCategories) }
