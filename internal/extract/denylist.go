package extract

// Denylist is every 2-5 letter uppercase token that must never be treated as
// a ticker candidate. It is the single source for exclusions; entries are
// grouped by the kind of false positive they suppress.
var Denylist = newSet(
	// Month abbreviations.
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",

	// Currency and country codes.
	"CAD", "USD", "USA",

	// Registered account types.
	"FHSA", "TFSA", "RRSP", "RESP",

	// Option and order jargon.
	"CALL", "PUT", "EXP", "STOP", "LOSS", "OPEN", "CLOSE",
	"TRADE", "HELD", "CLASS", "YTD", "POS", "MAX", "MONEY", "YOLO",

	// Timezone codes.
	"CST", "UTC", "GMT", "PST", "EST", "CET", "BST", "IST",
	"MST", "JST", "AEDT", "ACDT", "AWST",

	// Generic words and screenshot noise.
	"INC", "AND", "NOT", "OMG", "LTE", "BY", "ANY", "NO", "BSS",
)

func newSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Denied reports whether token is on the denylist.
func Denied(token string) bool {
	_, ok := Denylist[token]
	return ok
}
