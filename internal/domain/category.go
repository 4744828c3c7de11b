package domain

// TicketCategory classifies a support request.
type TicketCategory string

const (
	CategoryTechnical      TicketCategory = "technical"
	CategoryAccount        TicketCategory = "account"
	CategoryBilling        TicketCategory = "billing"
	CategoryGeneral        TicketCategory = "general"
	CategoryFeatureRequest TicketCategory = "feature-request"
)

// legacyCategoryAliases maps historical category tokens, kept for
// tickets filed before the rename, onto their canonical values.
var legacyCategoryAliases = map[string]TicketCategory{
	"TECHNICAL":       CategoryTechnical,
	"feature_request": CategoryFeatureRequest,
}

// CanonicalCategory normalizes a raw category token, accepting legacy
// aliases at the boundary. Stored tickets only ever carry canonical
// values.
func CanonicalCategory(raw string) (TicketCategory, bool) {
	switch TicketCategory(raw) {
	case CategoryTechnical, CategoryAccount, CategoryBilling, CategoryGeneral, CategoryFeatureRequest:
		return TicketCategory(raw), true
	}
	if canonical, ok := legacyCategoryAliases[raw]; ok {
		return canonical, true
	}
	return "", false
}

// Valid reports whether the category is a canonical token.
func (c TicketCategory) Valid() bool {
	_, ok := CanonicalCategory(string(c))
	return ok && legacyCategoryAliases[string(c)] == ""
}
