package reply

import (
	"fmt"
	"strings"

	"jamalekbot/pkg/directory"
	"jamalekbot/pkg/message"
)

// MaxPhotos caps the media units sent after an info reply.
const MaxPhotos = 3

const (
	greetingText = "👋 Bonjour! Je suis le bot officiel de Jamalek Online.\n\n" +
		"Envoyez *aide* pour découvrir ce que je peux faire."

	helpText = "📋 *Commandes disponibles*\n\n" +
		"• *chercher <mot-clé>* : rechercher une entreprise\n" +
		"• *info <nom ou identifiant>* : afficher la fiche d'une entreprise\n" +
		"• *test* : vérifier que le bot fonctionne\n" +
		"• *aide* : afficher ce message"

	selfTestText = "✅ Le bot fonctionne correctement!"

	unrecognizedText = "🤔 Je n'ai pas compris votre message.\n\nEnvoyez *aide* pour voir les commandes disponibles."

	failureText = "❌ Désolé, une erreur s'est produite. Veuillez réessayer plus tard."

	detailsHint = "ℹ️ Pour plus de détails, envoyez: *info <nom>*"
)

// Static returns the fixed reply for greeting, help and self-test.
func Static(text string) message.Outbound {
	return message.Text(text)
}

func searchingText(term string) string {
	return fmt.Sprintf("🔍 Recherche en cours pour \"%s\"...", term)
}

func noSearchResultText(keyword string) string {
	return fmt.Sprintf("😕 Aucune entreprise trouvée pour \"%s\".", keyword)
}

func notFoundText(query string) string {
	return fmt.Sprintf("😕 Aucune entreprise ne correspond à \"%s\".", query)
}

// SearchResults lists every match in one message, numbered from 1.
func SearchResults(keyword string, records []directory.Record) message.Outbound {
	if len(records) == 0 {
		return message.Text(noSearchResultText(keyword))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏢 *%d résultat(s) pour \"%s\"*\n", len(records), keyword)
	for i, record := range records {
		fmt.Fprintf(&b, "\n%d. *%s*\n", i+1, record.Name)
		fmt.Fprintf(&b, "📞 %s\n", displayOrDash(record.Phone))
		fmt.Fprintf(&b, "📍 %s\n", displayOrDash(record.Address))
		fmt.Fprintf(&b, "🏷️ %s\n", displayOrDash(record.Category))
	}
	b.WriteString("\n")
	b.WriteString(detailsHint)

	return message.Text(b.String())
}

// InfoResults is the detail text followed by at most MaxPhotos media units.
func InfoResults(record directory.Record) []message.Outbound {
	var b strings.Builder
	fmt.Fprintf(&b, "🏢 *%s*\n\n", record.Name)
	fmt.Fprintf(&b, "📞 Téléphone: %s\n", displayOrDash(record.Phone))
	fmt.Fprintf(&b, "📍 Adresse: %s\n", displayOrDash(record.Address))
	fmt.Fprintf(&b, "🏷️ Catégorie: %s\n", displayOrDash(record.Category))
	fmt.Fprintf(&b, "\n📝 %s", displayOrDash(record.Description))
	if keywords := strings.TrimSpace(record.Keywords); keywords != "" {
		fmt.Fprintf(&b, "\n\n🔑 Mots-clés: %s", keywords)
	}

	units := []message.Outbound{message.Text(b.String())}
	for _, url := range record.PhotoURLs {
		if len(units)-1 == MaxPhotos {
			break
		}
		trimmed := strings.TrimSpace(url)
		if trimmed == "" {
			continue
		}
		units = append(units, message.Media(trimmed, record.Name))
	}

	return units
}

func displayOrDash(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "-"
	}

	return trimmed
}
