package mode

// Mode is the retrieval strategy.
type Mode string

// Search mode constants. The two modes are mutually exclusive; no hybrid
// re-ranking is performed.
const (
	// Text runs a multi-field best-match search over the recipe text fields.
	Text Mode = "text"
	// Vector embeds the query and runs approximate KNN over the embedding field.
	Vector Mode = "vector"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Text || m == Vector
}
