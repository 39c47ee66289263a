package models

// DocumentCategory is the top level of the classification taxonomy.
type DocumentCategory string

const (
	CategoryIdentity       DocumentCategory = "identity"
	CategoryFinancial      DocumentCategory = "financial"
	CategoryTax            DocumentCategory = "tax"
	CategoryIncome         DocumentCategory = "income"
	CategoryExpense        DocumentCategory = "expense"
	CategoryInvoice        DocumentCategory = "invoice"
	CategoryMedical        DocumentCategory = "medical"
	CategoryInsurance      DocumentCategory = "insurance"
	CategoryLegal          DocumentCategory = "legal"
	CategoryProperty       DocumentCategory = "property"
	CategoryBusiness       DocumentCategory = "business"
	CategoryEmployment     DocumentCategory = "employment"
	CategoryEducation      DocumentCategory = "education"
	CategoryCertification  DocumentCategory = "certification"
	CategoryCorrespondence DocumentCategory = "correspondence"
	CategoryVehicle        DocumentCategory = "vehicle"
	CategoryPersonal       DocumentCategory = "personal"
	CategoryTravel         DocumentCategory = "travel"
	CategoryTechnical      DocumentCategory = "technical"
	CategoryNeedsReview    DocumentCategory = "needs_review"
	CategoryOther          DocumentCategory = "other"
)

// DocumentSubtype is the fine-grained level of the taxonomy.
type DocumentSubtype string

const (
	// Identity
	SubtypeDriversLicense   DocumentSubtype = "drivers_license"
	SubtypePassport         DocumentSubtype = "passport"
	SubtypeIDCard           DocumentSubtype = "id_card"
	SubtypeBirthCertificate DocumentSubtype = "birth_certificate"
	SubtypeSocialSecurity   DocumentSubtype = "social_security"
	SubtypeGreenCard        DocumentSubtype = "green_card"
	SubtypeVisa             DocumentSubtype = "visa"
	SubtypeMarriageCert     DocumentSubtype = "marriage_certificate"

	// Financial
	SubtypeBankStatement    DocumentSubtype = "bank_statement"
	SubtypeCreditCardStmt   DocumentSubtype = "credit_card_statement"
	SubtypeLoanDocument     DocumentSubtype = "loan_document"
	SubtypeMortgageDocument DocumentSubtype = "mortgage_document"
	SubtypeInvestmentReport DocumentSubtype = "investment_report"
	SubtypeRetirementStmt   DocumentSubtype = "retirement_statement"
	SubtypeWireTransfer     DocumentSubtype = "wire_transfer"
	SubtypeCheck            DocumentSubtype = "check"

	// Tax
	SubtypeTaxReturn    DocumentSubtype = "tax_return"
	Subtype1040         DocumentSubtype = "1040"
	SubtypeW4           DocumentSubtype = "w4"
	SubtypeW9           DocumentSubtype = "w9"
	SubtypePropertyTax  DocumentSubtype = "property_tax"
	SubtypeIRSNotice    DocumentSubtype = "irs_notice"
	SubtypeTaxTranscript DocumentSubtype = "tax_transcript"

	// Income
	SubtypeW2           DocumentSubtype = "w2"
	Subtype1099         DocumentSubtype = "1099"
	SubtypePayStub      DocumentSubtype = "pay_stub"
	SubtypePension      DocumentSubtype = "pension"
	SubtypeRentalIncome DocumentSubtype = "rental_income"
	SubtypeDividend     DocumentSubtype = "dividend"

	// Expense
	SubtypeReceipt         DocumentSubtype = "receipt"
	SubtypeExpenseReport   DocumentSubtype = "expense_report"
	SubtypeMileageLog      DocumentSubtype = "mileage_log"
	SubtypeDonationReceipt DocumentSubtype = "donation_receipt"
	SubtypeBill            DocumentSubtype = "bill"
	SubtypePurchaseOrder   DocumentSubtype = "purchase_order"

	// Invoice
	SubtypeInvoice     DocumentSubtype = "invoice"
	SubtypeUtilityBill DocumentSubtype = "utility_bill"
	SubtypeMedicalBill DocumentSubtype = "medical_bill"
	SubtypeEstimate    DocumentSubtype = "estimate"
	SubtypeQuote       DocumentSubtype = "quote"

	// Medical
	SubtypeMedicalRecord     DocumentSubtype = "medical_record"
	SubtypePrescription      DocumentSubtype = "prescription"
	SubtypeLabResults        DocumentSubtype = "lab_results"
	SubtypeVaccinationRecord DocumentSubtype = "vaccination_record"
	SubtypeDischargeSummary  DocumentSubtype = "discharge_summary"
	SubtypeDentalRecord      DocumentSubtype = "dental_record"

	// Insurance
	SubtypeInsuranceCard   DocumentSubtype = "insurance_card"
	SubtypeHealthInsurance DocumentSubtype = "health_insurance"
	SubtypeLifeInsurance   DocumentSubtype = "life_insurance"
	SubtypeAutoInsurance   DocumentSubtype = "auto_insurance"
	SubtypeHomeInsurance   DocumentSubtype = "home_insurance"
	SubtypeInsuranceClaim  DocumentSubtype = "insurance_claim"
	SubtypeEOB             DocumentSubtype = "eob"
	SubtypeDeclarationPage DocumentSubtype = "declaration_page"

	// Legal
	SubtypeContract        DocumentSubtype = "contract"
	SubtypeAgreement       DocumentSubtype = "agreement"
	SubtypeDeed            DocumentSubtype = "deed"
	SubtypeWill            DocumentSubtype = "will"
	SubtypeTrust           DocumentSubtype = "trust"
	SubtypePowerOfAttorney DocumentSubtype = "power_of_attorney"
	SubtypeCourtDocument   DocumentSubtype = "court_document"
	SubtypeAffidavit       DocumentSubtype = "affidavit"
	SubtypeNDA             DocumentSubtype = "nda"

	// Property
	SubtypeLease           DocumentSubtype = "lease"
	SubtypeHomeAppraisal   DocumentSubtype = "home_appraisal"
	SubtypeHOADocument     DocumentSubtype = "hoa_document"
	SubtypeClosingDocument DocumentSubtype = "closing_document"
	SubtypeHomeInspection  DocumentSubtype = "home_inspection"

	// Business
	SubtypeBusinessLicense DocumentSubtype = "business_license"
	SubtypeArticlesOfInc   DocumentSubtype = "articles_of_incorporation"
	SubtypeOperatingAgmt   DocumentSubtype = "operating_agreement"
	SubtypeBoardMinutes    DocumentSubtype = "board_minutes"
	SubtypeProfitLoss      DocumentSubtype = "profit_loss"
	SubtypeBalanceSheet    DocumentSubtype = "balance_sheet"
	SubtypeAnnualReport    DocumentSubtype = "annual_report"

	// Employment
	SubtypeOfferLetter        DocumentSubtype = "offer_letter"
	SubtypeEmploymentContract DocumentSubtype = "employment_contract"
	SubtypePerformanceReview  DocumentSubtype = "performance_review"
	SubtypeI9                 DocumentSubtype = "i9"
	SubtypeResume             DocumentSubtype = "resume"
	SubtypeBenefitsEnrollment DocumentSubtype = "benefits_enrollment"

	// Education
	SubtypeTranscript       DocumentSubtype = "transcript"
	SubtypeDiploma          DocumentSubtype = "diploma"
	SubtypeEnrollment       DocumentSubtype = "enrollment"
	SubtypeFinancialAid     DocumentSubtype = "financial_aid"
	SubtypeStudentLoan      DocumentSubtype = "student_loan"

	// Certification
	SubtypeProfessionalLicense DocumentSubtype = "professional_license"
	SubtypeCertification       DocumentSubtype = "certification"
	SubtypeTrainingCertificate DocumentSubtype = "training_certificate"
	SubtypeAward               DocumentSubtype = "award"

	// Correspondence
	SubtypeLetter DocumentSubtype = "letter"
	SubtypeMemo   DocumentSubtype = "memo"
	SubtypeNotice DocumentSubtype = "notice"

	// Vehicle
	SubtypeVehicleTitle      DocumentSubtype = "vehicle_title"
	SubtypeRegistration      DocumentSubtype = "registration"
	SubtypeBillOfSale        DocumentSubtype = "bill_of_sale"
	SubtypeMaintenanceRecord DocumentSubtype = "maintenance_record"
	SubtypeAccidentReport    DocumentSubtype = "accident_report"

	// Personal
	SubtypePhoto        DocumentSubtype = "photo"
	SubtypeDocumentScan DocumentSubtype = "document_scan"
	SubtypeRecipe       DocumentSubtype = "recipe"

	// Travel
	SubtypeItinerary        DocumentSubtype = "itinerary"
	SubtypeBoardingPass     DocumentSubtype = "boarding_pass"
	SubtypeHotelReservation DocumentSubtype = "hotel_reservation"
	SubtypeTravelReceipt    DocumentSubtype = "travel_receipt"

	// Technical
	SubtypeUserManual    DocumentSubtype = "user_manual"
	SubtypeSpecification DocumentSubtype = "specification"
	SubtypeReleaseNotes  DocumentSubtype = "release_notes"

	// General
	SubtypeGeneral DocumentSubtype = "general"
	SubtypeUnknown DocumentSubtype = "unknown"
)

// categoryBySubtype is the single source of truth for the subtype to
// category mapping. Every subtype constant above must appear exactly once;
// TestTaxonomyComplete enforces this.
var categoryBySubtype = map[DocumentSubtype]DocumentCategory{
	SubtypeDriversLicense:   CategoryIdentity,
	SubtypePassport:         CategoryIdentity,
	SubtypeIDCard:           CategoryIdentity,
	SubtypeBirthCertificate: CategoryIdentity,
	SubtypeSocialSecurity:   CategoryIdentity,
	SubtypeGreenCard:        CategoryIdentity,
	SubtypeVisa:             CategoryIdentity,
	SubtypeMarriageCert:     CategoryIdentity,

	SubtypeBankStatement:    CategoryFinancial,
	SubtypeCreditCardStmt:   CategoryFinancial,
	SubtypeLoanDocument:     CategoryFinancial,
	SubtypeMortgageDocument: CategoryFinancial,
	SubtypeInvestmentReport: CategoryFinancial,
	SubtypeRetirementStmt:   CategoryFinancial,
	SubtypeWireTransfer:     CategoryFinancial,
	SubtypeCheck:            CategoryFinancial,

	SubtypeTaxReturn:     CategoryTax,
	Subtype1040:          CategoryTax,
	SubtypeW4:            CategoryTax,
	SubtypeW9:            CategoryTax,
	SubtypePropertyTax:   CategoryTax,
	SubtypeIRSNotice:     CategoryTax,
	SubtypeTaxTranscript: CategoryTax,

	SubtypeW2:           CategoryIncome,
	Subtype1099:         CategoryIncome,
	SubtypePayStub:      CategoryIncome,
	SubtypePension:      CategoryIncome,
	SubtypeRentalIncome: CategoryIncome,
	SubtypeDividend:     CategoryIncome,

	SubtypeReceipt:         CategoryExpense,
	SubtypeExpenseReport:   CategoryExpense,
	SubtypeMileageLog:      CategoryExpense,
	SubtypeDonationReceipt: CategoryExpense,
	SubtypeBill:            CategoryExpense,
	SubtypePurchaseOrder:   CategoryExpense,

	SubtypeInvoice:     CategoryInvoice,
	SubtypeUtilityBill: CategoryInvoice,
	SubtypeMedicalBill: CategoryInvoice,
	SubtypeEstimate:    CategoryInvoice,
	SubtypeQuote:       CategoryInvoice,

	SubtypeMedicalRecord:     CategoryMedical,
	SubtypePrescription:      CategoryMedical,
	SubtypeLabResults:        CategoryMedical,
	SubtypeVaccinationRecord: CategoryMedical,
	SubtypeDischargeSummary:  CategoryMedical,
	SubtypeDentalRecord:      CategoryMedical,

	SubtypeInsuranceCard:   CategoryInsurance,
	SubtypeHealthInsurance: CategoryInsurance,
	SubtypeLifeInsurance:   CategoryInsurance,
	SubtypeAutoInsurance:   CategoryInsurance,
	SubtypeHomeInsurance:   CategoryInsurance,
	SubtypeInsuranceClaim:  CategoryInsurance,
	SubtypeEOB:             CategoryInsurance,
	SubtypeDeclarationPage: CategoryInsurance,

	SubtypeContract:        CategoryLegal,
	SubtypeAgreement:       CategoryLegal,
	SubtypeDeed:            CategoryLegal,
	SubtypeWill:            CategoryLegal,
	SubtypeTrust:           CategoryLegal,
	SubtypePowerOfAttorney: CategoryLegal,
	SubtypeCourtDocument:   CategoryLegal,
	SubtypeAffidavit:       CategoryLegal,
	SubtypeNDA:             CategoryLegal,

	SubtypeLease:           CategoryProperty,
	SubtypeHomeAppraisal:   CategoryProperty,
	SubtypeHOADocument:     CategoryProperty,
	SubtypeClosingDocument: CategoryProperty,
	SubtypeHomeInspection:  CategoryProperty,

	SubtypeBusinessLicense: CategoryBusiness,
	SubtypeArticlesOfInc:   CategoryBusiness,
	SubtypeOperatingAgmt:   CategoryBusiness,
	SubtypeBoardMinutes:    CategoryBusiness,
	SubtypeProfitLoss:      CategoryBusiness,
	SubtypeBalanceSheet:    CategoryBusiness,
	SubtypeAnnualReport:    CategoryBusiness,

	SubtypeOfferLetter:        CategoryEmployment,
	SubtypeEmploymentContract: CategoryEmployment,
	SubtypePerformanceReview:  CategoryEmployment,
	SubtypeI9:                 CategoryEmployment,
	SubtypeResume:             CategoryEmployment,
	SubtypeBenefitsEnrollment: CategoryEmployment,

	SubtypeTranscript:   CategoryEducation,
	SubtypeDiploma:      CategoryEducation,
	SubtypeEnrollment:   CategoryEducation,
	SubtypeFinancialAid: CategoryEducation,
	SubtypeStudentLoan:  CategoryEducation,

	SubtypeProfessionalLicense: CategoryCertification,
	SubtypeCertification:       CategoryCertification,
	SubtypeTrainingCertificate: CategoryCertification,
	SubtypeAward:               CategoryCertification,

	SubtypeLetter: CategoryCorrespondence,
	SubtypeMemo:   CategoryCorrespondence,
	SubtypeNotice: CategoryCorrespondence,

	SubtypeVehicleTitle:      CategoryVehicle,
	SubtypeRegistration:      CategoryVehicle,
	SubtypeBillOfSale:        CategoryVehicle,
	SubtypeMaintenanceRecord: CategoryVehicle,
	SubtypeAccidentReport:    CategoryVehicle,

	SubtypePhoto:        CategoryPersonal,
	SubtypeDocumentScan: CategoryPersonal,
	SubtypeRecipe:       CategoryPersonal,

	SubtypeItinerary:        CategoryTravel,
	SubtypeBoardingPass:     CategoryTravel,
	SubtypeHotelReservation: CategoryTravel,
	SubtypeTravelReceipt:    CategoryTravel,

	SubtypeUserManual:    CategoryTechnical,
	SubtypeSpecification: CategoryTechnical,
	SubtypeReleaseNotes:  CategoryTechnical,

	SubtypeGeneral: CategoryOther,
	SubtypeUnknown: CategoryNeedsReview,
}

// folderNameBySubtype maps subtypes to the human-readable leaf folder name
// used when deriving a target path.
var folderNameBySubtype = map[DocumentSubtype]string{
	SubtypeDriversLicense:   "Driver Licenses",
	SubtypePassport:         "Passports",
	SubtypeIDCard:           "ID Cards",
	SubtypeBirthCertificate: "Birth Certificates",
	SubtypeSocialSecurity:   "Social Security",
	SubtypeGreenCard:        "Green Cards",
	SubtypeVisa:             "Visas",
	SubtypeMarriageCert:     "Marriage Certificates",

	SubtypeBankStatement:    "Bank Statements",
	SubtypeCreditCardStmt:   "Credit Card Statements",
	SubtypeLoanDocument:     "Loan Documents",
	SubtypeMortgageDocument: "Mortgage Documents",
	SubtypeInvestmentReport: "Investment Reports",
	SubtypeRetirementStmt:   "Retirement Statements",
	SubtypeWireTransfer:     "Wire Transfers",
	SubtypeCheck:            "Checks",

	SubtypeTaxReturn:     "Tax Returns",
	Subtype1040:          "1040 Forms",
	SubtypeW4:            "W-4 Forms",
	SubtypeW9:            "W-9 Forms",
	SubtypePropertyTax:   "Property Tax",
	SubtypeIRSNotice:     "IRS Notices",
	SubtypeTaxTranscript: "Tax Transcripts",

	SubtypeW2:           "W2",
	Subtype1099:         "1099 Forms",
	SubtypePayStub:      "Pay Stubs",
	SubtypePension:      "Pension",
	SubtypeRentalIncome: "Rental Income",
	SubtypeDividend:     "Dividends",

	SubtypeReceipt:         "Receipts",
	SubtypeExpenseReport:   "Expense Reports",
	SubtypeMileageLog:      "Mileage Logs",
	SubtypeDonationReceipt: "Donation Receipts",
	SubtypeBill:            "Bills",
	SubtypePurchaseOrder:   "Purchase Orders",

	SubtypeInvoice:     "Invoices",
	SubtypeUtilityBill: "Utility Bills",
	SubtypeMedicalBill: "Medical Bills",
	SubtypeEstimate:    "Estimates",
	SubtypeQuote:       "Quotes",

	SubtypeMedicalRecord:     "Medical Records",
	SubtypePrescription:      "Prescriptions",
	SubtypeLabResults:        "Lab Results",
	SubtypeVaccinationRecord: "Vaccination Records",
	SubtypeDischargeSummary:  "Discharge Summaries",
	SubtypeDentalRecord:      "Dental Records",

	SubtypeInsuranceCard:   "Insurance Cards",
	SubtypeHealthInsurance: "Health Insurance",
	SubtypeLifeInsurance:   "Life Insurance",
	SubtypeAutoInsurance:   "Auto Insurance",
	SubtypeHomeInsurance:   "Home Insurance",
	SubtypeInsuranceClaim:  "Insurance Claims",
	SubtypeEOB:             "Explanations of Benefits",
	SubtypeDeclarationPage: "Declaration Pages",

	SubtypeContract:        "Contracts",
	SubtypeAgreement:       "Agreements",
	SubtypeDeed:            "Property Deeds",
	SubtypeWill:            "Wills & Trusts",
	SubtypeTrust:           "Wills & Trusts",
	SubtypePowerOfAttorney: "Power of Attorney",
	SubtypeCourtDocument:   "Court Documents",
	SubtypeAffidavit:       "Affidavits",
	SubtypeNDA:             "NDAs",

	SubtypeLease:           "Leases",
	SubtypeHomeAppraisal:   "Home Appraisals",
	SubtypeHOADocument:     "HOA Documents",
	SubtypeClosingDocument: "Closing Documents",
	SubtypeHomeInspection:  "Home Inspections",

	SubtypeBusinessLicense: "Business Licenses",
	SubtypeArticlesOfInc:   "Articles of Incorporation",
	SubtypeOperatingAgmt:   "Operating Agreements",
	SubtypeBoardMinutes:    "Board Minutes",
	SubtypeProfitLoss:      "Profit & Loss",
	SubtypeBalanceSheet:    "Balance Sheets",
	SubtypeAnnualReport:    "Annual Reports",

	SubtypeOfferLetter:        "Offer Letters",
	SubtypeEmploymentContract: "Employment Contracts",
	SubtypePerformanceReview:  "Performance Reviews",
	SubtypeI9:                 "I-9 Forms",
	SubtypeResume:             "Resumes",
	SubtypeBenefitsEnrollment: "Benefits",

	SubtypeTranscript:   "Transcripts",
	SubtypeDiploma:      "Diplomas",
	SubtypeEnrollment:   "Enrollment",
	SubtypeFinancialAid: "Financial Aid",
	SubtypeStudentLoan:  "Student Loans",

	SubtypeProfessionalLicense: "Professional Licenses",
	SubtypeCertification:       "Certifications",
	SubtypeTrainingCertificate: "Training Certificates",
	SubtypeAward:               "Awards",

	SubtypeLetter: "Letters",
	SubtypeMemo:   "Memos",
	SubtypeNotice: "Notices",

	SubtypeVehicleTitle:      "Vehicle Titles",
	SubtypeRegistration:      "Registrations",
	SubtypeBillOfSale:        "Bills of Sale",
	SubtypeMaintenanceRecord: "Maintenance Records",
	SubtypeAccidentReport:    "Accident Reports",

	SubtypePhoto:        "Photos",
	SubtypeDocumentScan: "Scans",
	SubtypeRecipe:       "Recipes",

	SubtypeItinerary:        "Itineraries",
	SubtypeBoardingPass:     "Boarding Passes",
	SubtypeHotelReservation: "Hotel Reservations",
	SubtypeTravelReceipt:    "Travel Receipts",

	SubtypeUserManual:    "Manuals",
	SubtypeSpecification: "Specifications",
	SubtypeReleaseNotes:  "Release Notes",

	SubtypeGeneral: "General",
	SubtypeUnknown: "Unsorted",
}

// displayNameByCategory maps categories to the folder segment used at the
// category level of a derived path.
var displayNameByCategory = map[DocumentCategory]string{
	CategoryIdentity:       "Identity",
	CategoryFinancial:      "Financial",
	CategoryTax:            "Tax",
	CategoryIncome:         "Income",
	CategoryExpense:        "Expenses",
	CategoryInvoice:        "Invoices",
	CategoryMedical:        "Medical",
	CategoryInsurance:      "Insurance",
	CategoryLegal:          "Legal",
	CategoryProperty:       "Property",
	CategoryBusiness:       "Business",
	CategoryEmployment:     "Employment",
	CategoryEducation:      "Education",
	CategoryCertification:  "Certifications",
	CategoryCorrespondence: "Correspondence",
	CategoryVehicle:        "Vehicle",
	CategoryPersonal:       "Personal",
	CategoryTravel:         "Travel",
	CategoryTechnical:      "Technical",
	CategoryNeedsReview:    "Needs Review",
	CategoryOther:          "Other",
}

// CategoryOf returns the category a subtype belongs to. The bool is false
// for subtypes outside the taxonomy.
func CategoryOf(sub DocumentSubtype) (DocumentCategory, bool) {
	c, ok := categoryBySubtype[sub]
	return c, ok
}

// FolderNameOf returns the leaf folder name for a subtype, falling back to
// "Other" for subtypes without a registered name.
func FolderNameOf(sub DocumentSubtype) string {
	if name, ok := folderNameBySubtype[sub]; ok {
		return name
	}
	return "Other"
}

// DisplayNameOf returns the category-level folder segment.
func DisplayNameOf(cat DocumentCategory) string {
	if name, ok := displayNameByCategory[cat]; ok {
		return name
	}
	return "Other"
}

// Subtypes returns every subtype in the taxonomy.
func Subtypes() []DocumentSubtype {
	subs := make([]DocumentSubtype, 0, len(categoryBySubtype))
	for s := range categoryBySubtype {
		subs = append(subs, s)
	}
	return subs
}

// IsSpecific reports whether a subtype carries real classification
// information. Used by the reconciler's tie-break rule.
func (s DocumentSubtype) IsSpecific() bool {
	return s != SubtypeGeneral && s != SubtypeUnknown && s != ""
}
