package domain

// BillingPlan is the subscription offered to a shop after install: a recurring
// price plus a capped usage line item.
type BillingPlan struct {
	Name       string
	Price      float64
	Currency   string
	UsageCap   float64
	UsageTerms string
	TrialDays  int
	Test       bool
}
