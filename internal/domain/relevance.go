package domain

// Label classifies how relevant a generated answer is to its question.
type Label string

// Judge verdict labels. LabelUnknown is never produced by the judge model
// itself; it marks a verdict that could not be parsed.
const (
	LabelRelevant       Label = "RELEVANT"
	LabelPartlyRelevant Label = "PARTLY_RELEVANT"
	LabelNonRelevant    Label = "NON_RELEVANT"
	LabelUnknown        Label = "UNKNOWN"
)

// ParseLabel validates a judge-emitted label string. Anything outside the
// three intentional labels maps to LabelUnknown with ok=false.
func ParseLabel(s string) (Label, bool) {
	switch l := Label(s); l {
	case LabelRelevant, LabelPartlyRelevant, LabelNonRelevant:
		return l, true
	}
	return LabelUnknown, false
}

// IsValid checks if the label is one of the known values, LabelUnknown included.
func (l Label) IsValid() bool {
	switch l {
	case LabelRelevant, LabelPartlyRelevant, LabelNonRelevant, LabelUnknown:
		return true
	}
	return false
}
