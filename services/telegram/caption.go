package telegram

import (
	"strings"

	"tharindu/ikmanwatcher/helpers"
	"tharindu/ikmanwatcher/internal/crawler"
)

// captionLimit is the Bot API's ceiling for media captions.
const captionLimit = 1024

// descriptionLimit keeps long listing descriptions from eating the whole
// caption before the details and link get their lines.
const descriptionLimit = 200

// escapeMarkdown backslash-escapes the characters Telegram's legacy Markdown
// mode treats as formatting.
func escapeMarkdown(text string) string {
	if text == "" {
		return text
	}
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"`", "\\`",
		"[", "\\[",
	)
	return replacer.Replace(text)
}

// adCaption renders the album caption: bold title, price, a shortened
// description, the detail lines and the ad link, one per line.
func adCaption(ad crawler.Ad) string {
	var lines []string
	if ad.Title != "" {
		lines = append(lines, "*"+escapeMarkdown(ad.Title)+"*")
	}
	if ad.Price != "" {
		lines = append(lines, escapeMarkdown(ad.Price))
	}
	if ad.Description != "" {
		desc := helpers.Truncate(ad.Description, descriptionLimit+3)
		lines = append(lines, escapeMarkdown(desc))
	}
	for _, detail := range ad.Details {
		lines = append(lines, escapeMarkdown(detail))
	}
	if url := ad.DetailURL(); url != "" {
		lines = append(lines, url)
	}

	caption := strings.Join(lines, "\n")
	return helpers.Truncate(caption, captionLimit)
}

// adMessage renders the plain-text fallback used when an ad has no photos.
func adMessage(ad crawler.Ad) string {
	var lines []string
	for _, line := range []string{ad.Title, ad.Price, ad.Description} {
		if line != "" {
			lines = append(lines, line)
		}
	}
	lines = append(lines, ad.Details...)
	if url := ad.DetailURL(); url != "" {
		lines = append(lines, url)
	}
	return strings.Join(lines, "\n")
}
