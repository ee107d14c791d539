package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/balance/internal/model"
)

const systemPrompt = "You are a personal finance coach who decides whether a purchase was a need (essential) or a want (discretionary). " +
	"You MUST respond with ONLY a valid JSON object. Do not include any explanatory text or markdown formatting."

// buildPrompt renders the user prompt for one transaction.
func buildPrompt(txn model.Transaction) string {
	var b strings.Builder

	b.WriteString("Classify this purchase as a need or a want.\n\n")
	fmt.Fprintf(&b, "Merchant: %s\n", txn.Merchant)
	fmt.Fprintf(&b, "Amount: $%.2f\n", txn.Amount)
	if txn.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", txn.Category)
	}
	if txn.ItemText != "" {
		fmt.Fprintf(&b, "Items: %s\n", txn.ItemText)
	}

	b.WriteString(`
Respond with JSON in exactly this shape:
{"category": "need" | "want", "confidence": <number between 0 and 1>, "reason": "<one sentence>", "ask_user": <true|false>}

Set "ask_user" to true when your confidence is below 0.6 and the user should decide.`)

	return b.String()
}
