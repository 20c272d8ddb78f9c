package service

import "github.com/iliyamo/felicity-registration/internal/model"

// IsEligible reports whether a participant of the given category may
// register under policy.  ALL admits everyone; the restricted policies fail
// closed on categories they do not recognize, as do unknown policies.
func IsEligible(policy model.Eligibility, category model.Category) bool {
	switch policy {
	case model.EligibilityAll:
		return true
	case model.EligibilityIIITOnly:
		return category == model.CategoryIIIT
	case model.EligibilityNonIIITOnly:
		return category == model.CategoryNonIIIT
	default:
		return false
	}
}
