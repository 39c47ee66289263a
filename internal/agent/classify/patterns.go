package classify

import (
	"regexp"

	"github.com/feichai0017/docfiler/internal/models"
)

// patternSet scores one subtype. A document's score for the set is
// matchCount * weight; its confidence is min(matchCount/len(patterns), 1)
// * weight.
type patternSet struct {
	subtype  models.DocumentSubtype
	patterns []*regexp.Regexp
	weight   float64
}

var classificationPatterns = []patternSet{
	// Identity
	{
		subtype: models.SubtypeDriversLicense,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)driver'?s?\s*licen[cs]e`),
			regexp.MustCompile(`(?i)\bDL\s*#?\s*[A-Z0-9]+`),
			regexp.MustCompile(`(?i)class\s*[A-Z]`),
			regexp.MustCompile(`(?i)license\s*number`),
			regexp.MustCompile(`(?i)state\s*of\s*[A-Z]`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypePassport,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bpassport\b`),
			regexp.MustCompile(`(?i)passport\s*no\.?`),
			regexp.MustCompile(`(?i)nationality`),
			regexp.MustCompile(`(?i)place\s*of\s*birth`),
			regexp.MustCompile(`(?i)\bMRZ\b`),
			regexp.MustCompile(`P<[A-Z]{3}`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeIDCard,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bid\s*card\b`),
			regexp.MustCompile(`(?i)identification\s*card`),
			regexp.MustCompile(`(?i)national\s*id`),
			regexp.MustCompile(`(?i)identity\s*card`),
		},
		weight: 0.9,
	},
	{
		// Weighted above the license set so certificates naming a state
		// and a registrar do not land in Driver Licenses.
		subtype: models.SubtypeBirthCertificate,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)birth\s*certificate`),
			regexp.MustCompile(`(?i)certificate\s*of\s*(?:live\s*)?birth`),
			regexp.MustCompile(`(?i)vital\s*records`),
			regexp.MustCompile(`(?i)live\s*birth`),
			regexp.MustCompile(`(?i)registrar`),
			regexp.MustCompile(`(?i)child'?s?\s*name`),
			regexp.MustCompile(`(?i)place\s*of\s*birth`),
			regexp.MustCompile(`(?i)mother'?s?\s*name`),
			regexp.MustCompile(`(?i)father'?s?\s*name`),
			regexp.MustCompile(`(?i)date\s*filed`),
		},
		weight: 1.2,
	},
	{
		subtype: models.SubtypeSocialSecurity,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)social\s*security`),
			regexp.MustCompile(`(?i)\bSSN\b`),
			regexp.MustCompile(`(?i)\bSSA\b`),
			regexp.MustCompile(`\d{3}-\d{2}-\d{4}`),
		},
		weight: 1.0,
	},

	// Financial
	{
		subtype: models.SubtypeBankStatement,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)bank\s*statement`),
			regexp.MustCompile(`(?i)account\s*statement`),
			regexp.MustCompile(`(?i)statement\s*period`),
			regexp.MustCompile(`(?i)beginning\s*balance`),
			regexp.MustCompile(`(?i)ending\s*balance`),
			regexp.MustCompile(`(?i)account\s*summary`),
			regexp.MustCompile(`(?i)account\s*number`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeCreditCardStmt,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)credit\s*card\s*statement`),
			regexp.MustCompile(`(?i)minimum\s*payment`),
			regexp.MustCompile(`(?i)payment\s*due\s*date`),
			regexp.MustCompile(`(?i)credit\s*limit`),
			regexp.MustCompile(`(?i)new\s*balance`),
			regexp.MustCompile(`(?i)\bAPR\b`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeMortgageDocument,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bmortgage\b`),
			regexp.MustCompile(`(?i)principal\s*and\s*interest`),
			regexp.MustCompile(`(?i)escrow`),
			regexp.MustCompile(`(?i)loan\s*number`),
			regexp.MustCompile(`(?i)amortization`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeInvestmentReport,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)investment\s*report`),
			regexp.MustCompile(`(?i)portfolio\s*statement`),
			regexp.MustCompile(`(?i)brokerage\s*statement`),
			regexp.MustCompile(`(?i)dividend`),
			regexp.MustCompile(`(?i)stock\s*holdings`),
			regexp.MustCompile(`(?i)mutual\s*fund`),
		},
		weight: 0.9,
	},

	// Tax
	{
		subtype: models.SubtypeTaxReturn,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)form\s*1040`),
			regexp.MustCompile(`(?i)tax\s*return`),
			regexp.MustCompile(`(?i)internal\s*revenue`),
			regexp.MustCompile(`(?i)\bIRS\b`),
			regexp.MustCompile(`(?i)taxable\s*income`),
			regexp.MustCompile(`(?i)tax\s*year`),
		},
		weight: 1.0,
	},

	// Income
	{
		subtype: models.SubtypeW2,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bW-?2\b`),
			regexp.MustCompile(`(?i)wage\s*and\s*tax\s*statement`),
			regexp.MustCompile(`(?i)employer'?s?\s*federal\s*EIN`),
			regexp.MustCompile(`(?i)wages,?\s*tips`),
		},
		weight: 1.0,
	},
	{
		subtype: models.Subtype1099,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b1099\b`),
			regexp.MustCompile(`(?i)1099-MISC`),
			regexp.MustCompile(`(?i)1099-NEC`),
			regexp.MustCompile(`(?i)1099-INT`),
			regexp.MustCompile(`(?i)nonemployee\s*compensation`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypePayStub,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)pay\s*stub`),
			regexp.MustCompile(`(?i)pay\s*statement`),
			regexp.MustCompile(`(?i)earnings\s*statement`),
			regexp.MustCompile(`(?i)gross\s*pay`),
			regexp.MustCompile(`(?i)net\s*pay`),
			regexp.MustCompile(`(?i)deductions`),
			regexp.MustCompile(`(?i)pay\s*period`),
		},
		weight: 1.0,
	},

	// Medical
	{
		subtype: models.SubtypeMedicalRecord,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)medical\s*record`),
			regexp.MustCompile(`(?i)patient\s*record`),
			regexp.MustCompile(`(?i)clinical\s*notes`),
			regexp.MustCompile(`(?i)diagnosis`),
			regexp.MustCompile(`(?i)treatment\s*plan`),
			regexp.MustCompile(`(?i)physician`),
			regexp.MustCompile(`(?i)healthcare\s*provider`),
		},
		weight: 0.9,
	},
	{
		subtype: models.SubtypePrescription,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bRx\b`),
			regexp.MustCompile(`(?i)prescription`),
			regexp.MustCompile(`(?i)pharmacy`),
			regexp.MustCompile(`(?i)dosage`),
			regexp.MustCompile(`(?i)refills`),
			regexp.MustCompile(`(?i)take\s*\d+\s*tablet`),
			regexp.MustCompile(`(?i)mg\s*tablet`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeLabResults,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)lab\s*results`),
			regexp.MustCompile(`(?i)laboratory\s*report`),
			regexp.MustCompile(`(?i)blood\s*test`),
			regexp.MustCompile(`(?i)test\s*results`),
			regexp.MustCompile(`(?i)specimen`),
			regexp.MustCompile(`(?i)reference\s*range`),
		},
		weight: 1.0,
	},

	// Insurance
	{
		subtype: models.SubtypeInsuranceCard,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)health\s*insurance`),
			regexp.MustCompile(`(?i)member\s*id`),
			regexp.MustCompile(`(?i)group\s*number`),
			regexp.MustCompile(`(?i)copay`),
			regexp.MustCompile(`(?i)\bPPO\b`),
			regexp.MustCompile(`(?i)\bHMO\b`),
			regexp.MustCompile(`(?i)subscriber`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeEOB,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)explanation\s*of\s*benefits`),
			regexp.MustCompile(`(?i)\bEOB\b`),
			regexp.MustCompile(`(?i)amount\s*billed`),
			regexp.MustCompile(`(?i)plan\s*paid`),
			regexp.MustCompile(`(?i)this\s*is\s*not\s*a\s*bill`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeInsuranceClaim,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)claim\s*number`),
			regexp.MustCompile(`(?i)insurance\s*claim`),
			regexp.MustCompile(`(?i)date\s*of\s*loss`),
			regexp.MustCompile(`(?i)adjuster`),
			regexp.MustCompile(`(?i)policy\s*number`),
		},
		weight: 0.9,
	},

	// Legal
	{
		subtype: models.SubtypeContract,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bcontract\b`),
			regexp.MustCompile(`(?i)agreement\b`),
			regexp.MustCompile(`(?i)terms\s*and\s*conditions`),
			regexp.MustCompile(`(?i)hereby\s*agree`),
			regexp.MustCompile(`(?i)party\s*of\s*the\s*first`),
			regexp.MustCompile(`(?i)witnesseth`),
			regexp.MustCompile(`(?i)executed\s*on`),
		},
		weight: 0.8,
	},
	{
		subtype: models.SubtypeDeed,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bdeed\b`),
			regexp.MustCompile(`(?i)property\s*deed`),
			regexp.MustCompile(`(?i)title\s*deed`),
			regexp.MustCompile(`(?i)grantor`),
			regexp.MustCompile(`(?i)grantee`),
			regexp.MustCompile(`(?i)real\s*property`),
			regexp.MustCompile(`(?i)legal\s*description`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeWill,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)last\s*will`),
			regexp.MustCompile(`(?i)testament`),
			regexp.MustCompile(`(?i)\bwill\b.*\bestate\b`),
			regexp.MustCompile(`(?i)executor`),
			regexp.MustCompile(`(?i)beneficiary`),
			regexp.MustCompile(`(?i)bequeath`),
			regexp.MustCompile(`(?i)hereby\s*revoke`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeCourtDocument,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)court\s*of`),
			regexp.MustCompile(`(?i)case\s*no\.?`),
			regexp.MustCompile(`(?i)plaintiff`),
			regexp.MustCompile(`(?i)defendant`),
			regexp.MustCompile(`(?i)docket`),
			regexp.MustCompile(`(?i)\bvs?\.?\b`),
			regexp.MustCompile(`(?i)judgment`),
			regexp.MustCompile(`(?i)petition`),
		},
		weight: 0.9,
	},
	{
		subtype: models.SubtypePowerOfAttorney,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)power\s*of\s*attorney`),
			regexp.MustCompile(`\bPOA\b`),
			regexp.MustCompile(`(?i)attorney.in.fact`),
			regexp.MustCompile(`(?i)principal\s*hereby`),
			regexp.MustCompile(`(?i)authorize.*act\s*on`),
		},
		weight: 1.0,
	},

	// Property
	{
		subtype: models.SubtypeLease,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\blease\b`),
			regexp.MustCompile(`(?i)landlord`),
			regexp.MustCompile(`(?i)tenant`),
			regexp.MustCompile(`(?i)monthly\s*rent`),
			regexp.MustCompile(`(?i)security\s*deposit`),
			regexp.MustCompile(`(?i)premises`),
		},
		weight: 1.0,
	},

	// Expense
	{
		subtype: models.SubtypeReceipt,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\breceipt\b`),
			regexp.MustCompile(`(?i)thank\s*you\s*for\s*(your\s*)?(purchase|shopping)`),
			regexp.MustCompile(`(?i)\btotal\b`),
			regexp.MustCompile(`(?i)\bsubtotal\b`),
			regexp.MustCompile(`(?i)\bchange\s*due\b`),
			regexp.MustCompile(`(?i)visa|mastercard|amex|discover`),
			regexp.MustCompile(`\*{4}\d{4}`),
		},
		weight: 0.9,
	},
	{
		subtype: models.SubtypeBill,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bbill\b`),
			regexp.MustCompile(`(?i)utility\s*bill`),
			regexp.MustCompile(`(?i)amount\s*due`),
			regexp.MustCompile(`(?i)due\s*by`),
			regexp.MustCompile(`(?i)service\s*period`),
			regexp.MustCompile(`(?i)account\s*balance`),
		},
		weight: 0.8,
	},
	{
		subtype: models.SubtypePurchaseOrder,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)purchase\s*order`),
			regexp.MustCompile(`(?i)\bP\.?O\.?\s*#`),
			regexp.MustCompile(`(?i)order\s*number`),
			regexp.MustCompile(`(?i)ship\s*date`),
			regexp.MustCompile(`(?i)delivery\s*date`),
			regexp.MustCompile(`(?i)ordered\s*by`),
		},
		weight: 1.0,
	},

	// Invoice
	{
		subtype: models.SubtypeInvoice,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\binvoice\b`),
			regexp.MustCompile(`(?i)invoice\s*#`),
			regexp.MustCompile(`(?i)invoice\s*number`),
			regexp.MustCompile(`(?i)bill\s*to`),
			regexp.MustCompile(`(?i)ship\s*to`),
			regexp.MustCompile(`(?i)due\s*date`),
			regexp.MustCompile(`(?i)payment\s*terms`),
			regexp.MustCompile(`(?i)amount\s*due`),
		},
		weight: 1.0,
	},

	// Employment
	{
		subtype: models.SubtypeOfferLetter,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)offer\s*of\s*employment`),
			regexp.MustCompile(`(?i)pleased\s*to\s*offer`),
			regexp.MustCompile(`(?i)start\s*date`),
			regexp.MustCompile(`(?i)annual\s*salary`),
			regexp.MustCompile(`(?i)reporting\s*to`),
		},
		weight: 1.0,
	},

	// Education
	{
		subtype: models.SubtypeTranscript,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)official\s*transcript`),
			regexp.MustCompile(`(?i)\bGPA\b`),
			regexp.MustCompile(`(?i)credit\s*hours`),
			regexp.MustCompile(`(?i)semester`),
			regexp.MustCompile(`(?i)registrar`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeDiploma,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bdiploma\b`),
			regexp.MustCompile(`(?i)degree\s*of`),
			regexp.MustCompile(`(?i)conferred`),
			regexp.MustCompile(`(?i)hereby\s*certif(?:y|ies)`),
			regexp.MustCompile(`(?i)board\s*of\s*trustees`),
		},
		weight: 1.0,
	},

	// Vehicle
	{
		subtype: models.SubtypeVehicleTitle,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)certificate\s*of\s*title`),
			regexp.MustCompile(`(?i)\bVIN\b`),
			regexp.MustCompile(`(?i)odometer`),
			regexp.MustCompile(`(?i)make.*model`),
			regexp.MustCompile(`(?i)lienholder`),
		},
		weight: 1.0,
	},
	{
		subtype: models.SubtypeRegistration,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)vehicle\s*registration`),
			regexp.MustCompile(`(?i)registration\s*expires`),
			regexp.MustCompile(`(?i)license\s*plate`),
			regexp.MustCompile(`(?i)\bDMV\b`),
		},
		weight: 1.0,
	},

	// Travel
	{
		subtype: models.SubtypeBoardingPass,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)boarding\s*pass`),
			regexp.MustCompile(`(?i)\bgate\b`),
			regexp.MustCompile(`(?i)seat\s*[0-9]+[A-Z]`),
			regexp.MustCompile(`(?i)departure`),
			regexp.MustCompile(`(?i)flight\s*[A-Z0-9]+`),
		},
		weight: 1.0,
	},
}

// fileNameHint maps a filename marker to a classification guess.
type fileNameHint struct {
	marker  string
	subtype models.DocumentSubtype
}

// Ordered: earlier entries win, so birth certificates are checked before
// the generic license marker and "receipt" before "id".
var fileNameHints = []fileNameHint{
	{"receipt", models.SubtypeReceipt},
	{"expense", models.SubtypeReceipt},
	{"invoice", models.SubtypeInvoice},
	{"birth", models.SubtypeBirthCertificate},
	{"social", models.SubtypeSocialSecurity},
	{"ssn", models.SubtypeSocialSecurity},
	{"ss-card", models.SubtypeSocialSecurity},
	{"ss_card", models.SubtypeSocialSecurity},
	{"license", models.SubtypeDriversLicense},
	{"driver", models.SubtypeDriversLicense},
	{"passport", models.SubtypePassport},
	{"id_card", models.SubtypeIDCard},
	{"id-card", models.SubtypeIDCard},
	{"idcard", models.SubtypeIDCard},
	{"identification", models.SubtypeIDCard},
	{"w2", models.SubtypeW2},
	{"w-2", models.SubtypeW2},
	{"1099", models.Subtype1099},
	{"statement", models.SubtypeBankStatement},
	{"contract", models.SubtypeContract},
	{"agreement", models.SubtypeContract},
	{"prescription", models.SubtypePrescription},
	{"lease", models.SubtypeLease},
	{"paystub", models.SubtypePayStub},
	{"pay_stub", models.SubtypePayStub},
}
