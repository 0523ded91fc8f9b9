package domain

// RecipeDocument is the read-only projection of an indexed recipe, as
// returned per search hit. The embedding field stays in the index and is
// never read back.
type RecipeDocument struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Ingredients  string `json:"ingredients"`
	Steps        string `json:"steps"`
	Tags         string `json:"tags"`
	NIngredients int    `json:"n_ingredients,omitempty"`
	NSteps       int    `json:"n_steps,omitempty"`
}
