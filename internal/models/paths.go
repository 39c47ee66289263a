package models

// NeedsReviewFolder is the holding area for documents below the
// classification confidence threshold.
const NeedsReviewFolder = "Needs Review"

// RootFolderFor returns the vault's root filing segment.
func RootFolderFor(vault VaultContext) string {
	if vault == VaultOrganization {
		return "Company Documents"
	}
	return "Personal Documents"
}

// FolderPathFor builds the canonical target path for a classification.
// Path structure: Root / Category / Year / Subtype, with flat trees for
// expenses and invoices.
func FolderPathFor(vault VaultContext, cat DocumentCategory, sub DocumentSubtype, year string) []string {
	switch cat {
	case CategoryExpense:
		return []string{"Expenses", year}
	case CategoryInvoice:
		return []string{"Invoices", year}
	case CategoryNeedsReview:
		return []string{NeedsReviewFolder}
	case CategoryOther:
		return []string{"Other", year}
	}
	return []string{RootFolderFor(vault), DisplayNameOf(cat), year, FolderNameOf(sub)}
}
