package generation

import (
	"fmt"
	"strings"

	"textvision/internal/domain"
)

// splitURLs breaks a provider field on commas and semicolons and strips the
// whitespace, backtick and quote artifacts around each entry.
func splitURLs(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(strings.TrimSpace(f), "`\"' \t\r\n")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Normalize turns raw provider URL and thumbnail fields into an AssetSet.
// Thumbnails are used only when they line up one-to-one with the assets;
// otherwise every asset is its own thumbnail.
func Normalize(rawURLs, rawThumbnails string) (domain.AssetSet, error) {
	urls := splitURLs(rawURLs)
	if len(urls) == 0 {
		return nil, fmt.Errorf("provider returned no asset url: %w", domain.ErrProviderFailure)
	}
	thumbs := splitURLs(rawThumbnails)
	if len(thumbs) != len(urls) {
		thumbs = append([]string(nil), urls...)
	}
	if len(urls) == 1 {
		return domain.SingleAsset{URL: urls[0], Thumbnail: thumbs[0]}, nil
	}
	return domain.MultiAsset{URLs: urls, Thumbnails: thumbs}, nil
}
