package ask

import (
	"fmt"
	"strings"

	"eventail/internal/index"
)

// maxChunkChars bounds how much of each chunk reaches the prompt, so a
// single verbose event cannot crowd out the rest of the context window.
const maxChunkChars = 500

const defaultPersona = `Tu es un assistant spécialisé dans les événements culturels ` +
	`de la région Occitanie. Tu réponds en français, de manière concise et factuelle, ` +
	`en t'appuyant exclusivement sur le contexte fourni. Si le contexte ne contient ` +
	`pas l'information demandée, dis-le clairement au lieu d'inventer.`

const answerInstruction = `Réponds à la question en utilisant uniquement le contexte ` +
	`ci-dessus. Si la question ne concerne pas les événements culturels en Occitanie, ` +
	`décline poliment et réoriente la conversation vers les événements culturels de la région.`

// BuildPrompt assembles the two generation messages. The system message
// is the persona (the compiled-in default unless the caller overrides
// it); the user message is the retrieved context, most relevant first,
// followed by the question.
func BuildPrompt(question string, scored []index.ScoredChunk, systemPrompt string) (system, user string) {
	system = defaultPersona
	if systemPrompt != "" {
		system = systemPrompt
	}

	var sb strings.Builder
	sb.WriteString("Contexte:\n\n")
	for i, sc := range scored {
		fmt.Fprintf(&sb, "[%d] (pertinence: %.2f)\n", i+1, sc.Score)
		if sc.Title != "" {
			fmt.Fprintf(&sb, "Titre: %s\n", sc.Title)
		}
		if sc.City != "" {
			fmt.Fprintf(&sb, "Ville: %s\n", sc.City)
		}
		if sc.DateStart != "" {
			date := sc.DateStart
			if sc.DateEnd != "" && sc.DateEnd != sc.DateStart {
				date = fmt.Sprintf("%s - %s", date, sc.DateEnd)
			}
			fmt.Fprintf(&sb, "Date: %s\n", date)
		}
		sb.WriteString(truncate(sc.Content, maxChunkChars))
		sb.WriteString("\n\n")
	}

	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	sb.WriteString(answerInstruction)

	return system, sb.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
