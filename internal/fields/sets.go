package fields

import (
	"fmt"
	"sort"
)

// KeyInvoiceNumber is the dedup key of both built-in field sets.
const KeyInvoiceNumber = "invoice_number"

const (
	longDate = `[A-Za-z]+\.?\s+\d{1,2},\s+\d{4}`
	anyDate  = `(?:` + longDate + `|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})`
	amount   = `(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}`
)

var (
	// The header number comes first; later mentions are usually references
	// to other invoices (credits, "replaces invoice #...").
	invoiceNumber = Spec{
		Name:    KeyInvoiceNumber,
		Pattern: `Invoice\s*(?:Number|No\.?|#)\s*[:#]?\s*(\d{4,})`,
		Select:  SelectFirst,
		Steps:   []Step{StepTrim},
	}

	// "Billed To   Date Issued   Due Date" header followed by one row of values.
	headerRow = `Billed\s*To\s+Date\s*Issued\s+Due\s*Date\s*\n\s*(.+?)\s+(` + longDate + `)\s+(` + longDate + `)`
)

var builtin = map[string]func() *Builder{
	"standard": Standard,
	"extended": Extended,
}

// Standard is the three-field set read from the invoice header row.
func Standard() *Builder {
	return NewBuilder(KeyInvoiceNumber).Add(
		invoiceNumber,
		Spec{
			Name:    "date_issued",
			Pattern: headerRow,
			Groups:  []int{2},
			Steps:   []Step{StepTrim, StepCollapse},
		},
		Spec{
			Name:    "billed_to",
			Pattern: headerRow,
			Groups:  []int{1},
			Steps:   []Step{StepStripComment, StepCollapse, StepTrim},
		},
	)
}

// Extended adds labelled dates, an address block, a two-part reference
// number and the final total.
func Extended() *Builder {
	return NewBuilder(KeyInvoiceNumber).Add(
		invoiceNumber,
		Spec{
			Name:    "date_issued",
			Pattern: `Date\s*Issued\s*:?\s*(` + anyDate + `)`,
			Select:  SelectFirst,
			Steps:   []Step{StepTrim, StepCollapse},
		},
		Spec{
			Name:    "due_date",
			Pattern: `Due\s*Date\s*:?\s*(` + anyDate + `)`,
			Steps:   []Step{StepTrim, StepCollapse},
		},
		Spec{
			Name:   "billed_to",
			Label:  `^\s*(?:Billed|Bill|Sold)\s*To\b`,
			Select: SelectFirst,
			Stop: []string{
				`^\s*(?:Date\s*Issued|Due\s*Date|Invoice\s*(?:Number|No|#)|Ref(?:erence)?\b|(?:Sub)?total\b|Description\b|Item\b)`,
			},
			Steps: []Step{StepStripComment, StepCollapse, StepDedent, StepTrim},
		},
		Spec{
			Name:    "reference_number",
			Pattern: `Ref(?:erence)?\s*(?:No\.?|Number|#)?\s*[:#]?\s*(\d+)(?:\s*-\s*(\d+))?`,
			Groups:  []int{1, 2},
			Join:    "-",
		},
		Spec{
			Name:    "total",
			Pattern: `Total\s*(?:Due|Amount)?\s*:?\s*[$€£]?\s*(` + amount + `)`,
			Select:  SelectLast,
			Steps:   []Step{StepTrim},
		},
	)
}

// Lookup builds a named built-in field set.
func Lookup(name string) (*Parser, error) {
	mk, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown field set %q (available: %v)", name, Names())
	}
	return mk().Build()
}

// Names lists the built-in field sets.
func Names() []string {
	out := make([]string, 0, len(builtin))
	for k := range builtin {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
