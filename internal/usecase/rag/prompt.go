package rag

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/reciperag/internal/domain"
)

const promptInstruction = `You are a recipe creator assistant. Answer the QUERY based on the CONTEXT from the recipe database.
Use only the recipes from the CONTEXT when answering the QUERY. Provide the recipe and the steps.
You do not need to use all the ingredients listed in the query if you don't recommend it.`

// BuildPrompt renders the grounding prompt: the fixed instruction block, the
// literal query, then one block per retrieved document in retrieval order.
// Pure and deterministic; zero-value fields render as empty text. No length
// truncation is performed here.
func BuildPrompt(query string, docs []domain.RecipeDocument) string {
	var context strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&context,
			"Recipe title: %s\ndescription: %s\ningredients: %s\nsteps: %s\n\n",
			doc.Name, doc.Description, doc.Ingredients, doc.Steps,
		)
	}

	prompt := fmt.Sprintf("%s\n\nQUERY: %s\n\nCONTEXT: \n%s", promptInstruction, query, context.String())
	return strings.TrimSpace(prompt)
}
