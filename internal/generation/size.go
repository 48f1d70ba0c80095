package generation

import (
	"regexp"
	"strings"
)

const defaultPixelSize = "1024x1024"

var pixelSizePattern = regexp.MustCompile(`^\d+x\d+$`)

var sizeAliases = map[string]string{
	"square":         "1024x1024",
	"square_hd":      "1024x1024",
	"portrait_4_3":   "864x1152",
	"landscape_4_3":  "1152x864",
	"portrait_16_9":  "720x1280",
	"landscape_16_9": "1280x720",
	"portrait_2_3":   "832x1248",
	"landscape_3_2":  "1248x832",
	"landscape_21_9": "1512x648",
}

var aspectRatios = map[string]string{
	"1024x1024": "1:1",
	"864x1152":  "3:4",
	"1152x864":  "4:3",
	"1280x720":  "16:9",
	"720x1280":  "9:16",
	"832x1248":  "2:3",
	"1248x832":  "3:2",
	"1512x648":  "21:9",
}

// PixelSize converts a size alias such as "landscape_16_9" into the WxH form
// the provider expects. WxH input is returned unchanged; anything else falls
// back to 1024x1024.
func PixelSize(size string) string {
	size = strings.TrimSpace(size)
	if size == "" {
		return defaultPixelSize
	}
	if pixelSizePattern.MatchString(size) {
		return size
	}
	if px, ok := sizeAliases[strings.ToLower(size)]; ok {
		return px
	}
	return defaultPixelSize
}

// AspectRatio maps a size to the ratio stored on the job. Unknown sizes map to 1:1.
func AspectRatio(size string) string {
	if ratio, ok := aspectRatios[PixelSize(size)]; ok {
		return ratio
	}
	return "1:1"
}
