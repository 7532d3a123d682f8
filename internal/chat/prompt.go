package chat

import (
	"fmt"
	"strings"

	"github.com/shoptalk/shoptalk/internal/history"
	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/vectorstore"
)

// systemPrompt is the fixed persona and behavioral contract. Answers must
// come from the retrieved context only; absence is stated, never papered
// over with invented product details.
const systemPrompt = `You are ShopTalk, a trusted company representative and intelligent shopping assistant.
Your goal is to help customers find the best product for their needs using the
product database (CSV reviews and catalog API data) supplied as context.

Guidelines:
- Recommend the most relevant product(s) for the customer's requirements.
- Highlight key features, pros/cons, and customer review insights when available.
- If multiple options exist, compare them and guide the customer to the best choice.
- If the requested information is not in the context, say plainly:
  "I don't have that information available right now, but I can help with related products."
- Never invent product details. Only use what the context contains.
- Keep responses clear, concise, and helpful.`

// buildMessages renders the full prompt: persona, retrieved context, prior
// session turns, then the new question. The context block is always present
// so the model sees an explicit "(no matching products found)" when
// retrieval came back empty.
func buildMessages(query string, docs []vectorstore.SearchResult, turns []history.Turn) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Context from the product database:\n")
	if len(docs) == 0 {
		sb.WriteString("(no matching products found)\n")
	}
	for i, d := range docs {
		fmt.Fprintf(&sb, "[Source %d] (score: %.3f)\n%s\n", i+1, d.Score, d.Text)
		if name, ok := d.Metadata["product_name"].(string); ok {
			fmt.Fprintf(&sb, "Product: %s\n", name)
		} else if title, ok := d.Metadata["title"].(string); ok {
			fmt.Fprintf(&sb, "Product: %s\n", title)
		}
		sb.WriteString("\n")
	}

	messages := make([]llm.Message, 0, len(turns)+3)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, llm.Message{Role: "system", Content: sb.String()})
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Text})
	}
	messages = append(messages, llm.Message{Role: "user", Content: query})
	return messages
}
