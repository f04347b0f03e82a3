package adi

import (
	"fmt"
	"strings"
	"unicode"
)

// paidLength is the canonical length of a fully qualified package asset id:
// a four letter class prefix plus sixteen digits.
const paidLength = 20

// PAIDPrefix is the class prefix carried by title-level asset identifiers.
const PAIDPrefix = "TITL"

// NormalizePAID rewrites QAM-style asset identifiers into the canonical
// twenty character form. Identifiers already at canonical length pass through
// untouched. The second return reports whether the value was rewritten.
func NormalizePAID(paid string) (string, bool, error) {
	trimmed := strings.TrimSpace(paid)
	if trimmed == "" {
		return "", false, fmt.Errorf("asset id is empty")
	}
	if len(trimmed) == paidLength {
		return trimmed, false, nil
	}

	digits := make([]rune, 0, len(trimmed))
	for _, r := range trimmed {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	numeric := strings.TrimLeft(string(digits), "0")
	if numeric == "" {
		return "", false, fmt.Errorf("asset id %q has no usable digits", paid)
	}
	if len(numeric) > paidLength-len(PAIDPrefix) {
		return "", false, fmt.Errorf("asset id %q exceeds canonical width after normalization", paid)
	}
	padded := strings.Repeat("0", paidLength-len(PAIDPrefix)-len(numeric)) + numeric
	return PAIDPrefix + padded, true, nil
}

// OnAPIProviderID is the provider-qualified identifier used against the
// provider's mapping API.
func OnAPIProviderID(providerID, paid string) string {
	return strings.TrimSpace(providerID) + strings.TrimSpace(paid)
}

// ValidateDocument applies structural checks a package must pass before it
// enters the pipeline.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("document is nil")
	}
	title := doc.TitleMetadata()
	if strings.TrimSpace(title.AMS.AssetID) == "" {
		return fmt.Errorf("title asset has no Asset_ID")
	}
	if strings.TrimSpace(title.AMS.ProviderID) == "" {
		return fmt.Errorf("title asset has no Provider_ID")
	}
	if !strings.EqualFold(title.AMS.AssetClass, ClassTitle) {
		return fmt.Errorf("top level asset class is %q, expected %q", title.AMS.AssetClass, ClassTitle)
	}
	return nil
}

// StripTitlePrefix removes the TITL class prefix from a normalized PAID,
// returning the bare numeric portion used for image asset identifiers.
func StripTitlePrefix(paid string) string {
	upper := strings.ToUpper(strings.TrimSpace(paid))
	if strings.HasPrefix(upper, PAIDPrefix) {
		return strings.TrimSpace(paid)[len(PAIDPrefix):]
	}
	return strings.TrimSpace(paid)
}
