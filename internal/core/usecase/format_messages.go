package usecase

import (
	"fmt"
	"sort"
	"strings"

	"rent-monitor-service/internal/core/domain"
)

// Форматирование исходящих сообщений (HTML-разметка канала доставки).

func formatEventMessage(event domain.ListingEvent) string {
	switch event.Type {
	case domain.EventTypePriceChange:
		return formatPriceDropMessage(event)
	default:
		return formatNewListingMessage(event)
	}
}

func formatNewListingMessage(event domain.ListingEvent) string {
	rec := event.Record
	var b strings.Builder

	b.WriteString("🆕 <b>New listing</b>\n")
	b.WriteString(strings.Repeat("─", 24) + "\n\n")
	fmt.Fprintf(&b, "<b>%s</b>\n", rec.Title)
	if loc := formatLocation(rec); loc != "" {
		fmt.Fprintf(&b, "📍 %s\n", loc)
	}
	fmt.Fprintf(&b, "💰 <b>Price:</b> %d\n", rec.Price)
	if rec.Rooms > 0 {
		fmt.Fprintf(&b, "🚪 <b>Rooms:</b> %.1f\n", rec.Rooms)
	}
	if rec.AreaSqm > 0 {
		fmt.Fprintf(&b, "📐 <b>Area:</b> %d m²\n", rec.AreaSqm)
	}
	if rec.AdLink != "" {
		fmt.Fprintf(&b, "\n🔗 <a href=\"%s\">Open listing</a>", rec.AdLink)
	}

	return b.String()
}

func formatPriceDropMessage(event domain.ListingEvent) string {
	rec := event.Record
	pct := priceChangePct(event.OldPrice, event.NewPrice)

	var b strings.Builder
	b.WriteString("📉 <b>Price drop</b>\n")
	b.WriteString(strings.Repeat("─", 24) + "\n\n")
	fmt.Fprintf(&b, "<b>%s</b>\n", rec.Title)
	if loc := formatLocation(rec); loc != "" {
		fmt.Fprintf(&b, "📍 %s\n", loc)
	}
	fmt.Fprintf(&b, "💵 <b>Was:</b> %d\n", event.OldPrice)
	fmt.Fprintf(&b, "💰 <b>Now:</b> %d (%+.1f%%)\n", event.NewPrice, pct)
	if rec.AdLink != "" {
		fmt.Fprintf(&b, "\n🔗 <a href=\"%s\">Open listing</a>", rec.AdLink)
	}

	return b.String()
}

// formatLocation собирает строку местоположения из непустых полей.
// Названия приводятся к заглавным буквам для единообразного вывода.
func formatLocation(rec domain.ListingRecord) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{rec.City, rec.SubArea, rec.Region} {
		if p != "" {
			parts = append(parts, domain.TitleCaser.String(p))
		}
	}
	return strings.Join(parts, ", ")
}

// formatDigestMessage собирает одну дневную сводку получателя из всех его
// отложенных совпадений.
func formatDigestMessage(entries []domain.DigestEntry) string {
	var newEntries, dropEntries []domain.DigestEntry
	for _, e := range entries {
		if e.EventType == domain.EventTypeNew {
			newEntries = append(newEntries, e)
		} else {
			dropEntries = append(dropEntries, e)
		}
	}

	var b strings.Builder
	b.WriteString("📬 <b>Daily digest</b>\n")
	b.WriteString(strings.Repeat("─", 24) + "\n\n")
	fmt.Fprintf(&b, "🆕 New listings: %d\n", len(newEntries))
	fmt.Fprintf(&b, "📉 Price drops: %d\n\n", len(dropEntries))

	if len(newEntries) > 0 {
		b.WriteString("<b>New (cheapest first):</b>\n")
		sort.Slice(newEntries, func(i, j int) bool { return newEntries[i].NewPrice < newEntries[j].NewPrice })
		for i, e := range newEntries {
			if i == 5 {
				fmt.Fprintf(&b, "  … and %d more\n", len(newEntries)-5)
				break
			}
			fmt.Fprintf(&b, "  • %s — %d\n", truncateTitle(e.Title), e.NewPrice)
		}
		b.WriteString("\n")
	}

	if len(dropEntries) > 0 {
		b.WriteString("<b>Price drops:</b>\n")
		sort.Slice(dropEntries, func(i, j int) bool {
			return priceChangePct(dropEntries[i].OldPrice, dropEntries[i].NewPrice) <
				priceChangePct(dropEntries[j].OldPrice, dropEntries[j].NewPrice)
		})
		for i, e := range dropEntries {
			if i == 5 {
				fmt.Fprintf(&b, "  … and %d more\n", len(dropEntries)-5)
				break
			}
			pct := priceChangePct(e.OldPrice, e.NewPrice)
			fmt.Fprintf(&b, "  • %s: %d → %d (%.1f%%)\n", truncateTitle(e.Title), e.OldPrice, e.NewPrice, pct)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func truncateTitle(title string) string {
	const maxLen = 35
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen]) + "…"
}
