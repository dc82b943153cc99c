package recipe

import "fmt"

const (
	maxNameLen    = 512
	maxDomainLen  = 253
	maxRuleLen    = 2048
	maxRules      = 32
	maxErrorLen   = 500
)

// validateRecipeInput checks a recipe's mutable fields before insert or
// update. Selectors are expected to be already parsed (selector.Parse
// rejects bad CSS); this validates presence and bounds.
func validateRecipeInput(r *Recipe) error {
	if r.Domain == "" {
		return fmt.Errorf("%w: domain is required", ErrInvalidInput)
	}
	if len(r.Domain) > maxDomainLen {
		return fmt.Errorf("%w: domain exceeds %d characters", ErrInvalidInput, maxDomainLen)
	}
	if len(r.Name) > maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLen)
	}

	if r.Selectors.Title.IsZero() {
		return fmt.Errorf("%w: title selector is required", ErrInvalidInput)
	}
	if r.Selectors.Content.IsZero() {
		return fmt.Errorf("%w: content selector is required", ErrInvalidInput)
	}

	// Listing selectors come as a pair.
	if !r.ListingSelectors.IsZero() {
		if r.ListingSelectors.Container.IsZero() || r.ListingSelectors.Link.IsZero() {
			return fmt.Errorf("%w: listing selectors need both container and link", ErrInvalidInput)
		}
	}

	if len(r.CleaningRules) > maxRules {
		return fmt.Errorf("%w: more than %d cleaning rules", ErrInvalidInput, maxRules)
	}
	for i := range r.CleaningRules {
		rule := &r.CleaningRules[i]
		if len(rule.Pattern) > maxRuleLen {
			return fmt.Errorf("%w: cleaning rule %d pattern too long", ErrInvalidInput, i)
		}
		if err := rule.Compile(); err != nil {
			return fmt.Errorf("%w: cleaning rule %d: %v", ErrInvalidInput, i, err)
		}
	}

	return nil
}

// truncateError bounds stored error messages.
func truncateError(msg string) string {
	if len(msg) > maxErrorLen {
		return msg[:maxErrorLen]
	}
	return msg
}
