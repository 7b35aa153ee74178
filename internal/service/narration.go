package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

// Minimum quality bar for generated narration.
const (
	minNarrationChars = 60
	minNarrationWords = 10
	narrationContext  = 5
)

// AINarrator narrates results with an LLM and rejects replies that look truncated or generic.
type AINarrator struct {
	ai        port.AIProvider
	brandName string
}

// NewAINarrator creates a narrator backed by the given AI provider.
func NewAINarrator(ai port.AIProvider, brandName string) *AINarrator {
	return &AINarrator{ai: ai, brandName: brandName}
}

// Narrate implements port.Narrator.
func (n *AINarrator) Narrate(ctx context.Context, query string, listings []domain.ScoredListing, in domain.Intent) (string, error) {
	systemPrompt := fmt.Sprintf(`You are a real estate consultant for %s in Dubai and the UAE.
Be professional, warm and precise. Format with Markdown and put counts, prices and locations in **bold**.
Acknowledge the buyer's criteria, mention how many properties were found (%d shown),
highlight one or two of them using only the details provided, and end with a helpful next step.
If nothing was found, suggest how to refine the search.
Keep the answer between 50 and 120 words. Never invent properties or details.

Buyer criteria: %s`, n.brandName, len(listings), describeCriteria(in))

	response, err := n.ai.Chat(ctx, systemPrompt, query, listingContext(listings))
	if err != nil {
		return "", fmt.Errorf("narrate with %s: %w", n.ai.ModelName(), err)
	}

	text := strings.TrimSpace(response)
	if err := validateNarration(text); err != nil {
		slog.Warn("narration rejected", "model", n.ai.ModelName(), "chars", len(text), "reason", err)
		return "", err
	}
	return text, nil
}

func validateNarration(text string) error {
	switch {
	case len(text) < minNarrationChars:
		return fmt.Errorf("%w: too short", port.ErrNarrationRejected)
	case strings.HasSuffix(text, "..."):
		return fmt.Errorf("%w: looks truncated", port.ErrNarrationRejected)
	case len(strings.Fields(text)) < minNarrationWords:
		return fmt.Errorf("%w: too few words", port.ErrNarrationRejected)
	}
	return nil
}

func describeCriteria(in domain.Intent) string {
	var parts []string
	if in.HasLocation() {
		parts = append(parts, "Location: "+*in.Location)
	}
	if in.PropertyType != nil {
		parts = append(parts, "Type: "+string(*in.PropertyType))
	}
	if in.MinBedrooms != nil {
		if *in.MinBedrooms == 0 {
			parts = append(parts, "Bedrooms: Studio")
		} else {
			parts = append(parts, fmt.Sprintf("Bedrooms: %d", *in.MinBedrooms))
		}
	}
	if in.MaxBudget != nil {
		parts = append(parts, fmt.Sprintf("Budget: Under %.1fM AED", *in.MaxBudget/1e6))
	}
	if in.Status != nil {
		parts = append(parts, "Status: "+string(*in.Status))
	}
	if len(parts) == 0 {
		return "General property inquiry"
	}
	return strings.Join(parts, ", ")
}

func listingContext(listings []domain.ScoredListing) []string {
	if len(listings) == 0 {
		return []string{"No properties found matching the criteria."}
	}
	out := make([]string, 0, narrationContext)
	for i, l := range listings {
		if i == narrationContext {
			break
		}
		line := fmt.Sprintf("%d. %s - %s, %s - %s", i+1, l.Title, l.Community, l.City, bedroomPhrase(l.Bedrooms))
		if l.Price != nil {
			line += " - " + formatAED(*l.Price)
		}
		if l.Featured {
			line += " (EXCLUSIVE)"
		}
		out = append(out, line)
	}
	return out
}

func bedroomPhrase(n int) string {
	if n == 0 {
		return "Studio"
	}
	return fmt.Sprintf("%d Bed", n)
}

func formatAED(price float64) string {
	if price >= 1e6 {
		return fmt.Sprintf("AED %.1fM", price/1e6)
	}
	return message.NewPrinter(language.English).Sprintf("AED %d", int64(math.Round(price)))
}

// FallbackNarration builds the deterministic summary used when no narrator is
// configured or narration fails. count is the number of listings shown.
func FallbackNarration(count int, in domain.Intent) string {
	if count == 0 {
		return emptyNarration(in)
	}

	var criteria []string
	if in.MinBedrooms != nil {
		if *in.MinBedrooms == 0 {
			criteria = append(criteria, "studio")
		} else {
			criteria = append(criteria, pluralBedrooms(*in.MinBedrooms))
		}
	}
	if in.HasLocation() {
		criteria = append(criteria, "in "+*in.Location)
	}
	if in.MaxBudget != nil {
		if *in.MaxBudget >= 1e6 {
			criteria = append(criteria, fmt.Sprintf("under %.1fM AED", *in.MaxBudget/1e6))
		} else {
			criteria = append(criteria, message.NewPrinter(language.English).
				Sprintf("under %d AED", int64(math.Round(*in.MaxBudget))))
		}
	}
	if in.PropertyType != nil {
		criteria = append(criteria, strings.ToLower(string(*in.PropertyType)))
	}

	var b strings.Builder
	switch {
	case count >= 20:
		fmt.Fprintf(&b, "🎉 Excellent! I found %d amazing properties", count)
	case count >= 10:
		fmt.Fprintf(&b, "✨ Great news! I found %d great properties", count)
	case count >= 5:
		fmt.Fprintf(&b, "🏠 Perfect! I found %d properties", count)
	case count == 1:
		b.WriteString("🎯 I found 1 property")
	default:
		fmt.Fprintf(&b, "🎯 I found %d properties", count)
	}
	if len(criteria) > 0 {
		b.WriteString(" " + strings.Join(criteria, ", ") + ".")
	}
	if count > 5 {
		b.WriteString(" Use filters or ask me to refine further!")
	} else {
		b.WriteString(" Let me know if you'd like to see more options or adjust your criteria.")
	}
	return b.String()
}

func emptyNarration(in domain.Intent) string {
	if !in.HasLocation() {
		return "I'm currently searching our latest property database. Please try again in a moment, or feel free to refine your search criteria!"
	}
	var criteria []string
	if in.PropertyType != nil {
		criteria = append(criteria, strings.ToLower(string(*in.PropertyType)))
	}
	if in.MinBedrooms != nil {
		criteria = append(criteria, pluralBedrooms(*in.MinBedrooms))
	}
	if in.MaxBudget != nil {
		criteria = append(criteria, fmt.Sprintf("under %.1fM AED", *in.MaxBudget/1e6))
	}
	suffix := ""
	if len(criteria) > 0 {
		suffix = " " + strings.Join(criteria, " ")
	}
	return fmt.Sprintf("I couldn't find any properties in %s%s. Try adjusting your search criteria or check a different location.", *in.Location, suffix)
}

func pluralBedrooms(n int) string {
	if n > 1 {
		return fmt.Sprintf("%d bedrooms", n)
	}
	return fmt.Sprintf("%d bedroom", n)
}
