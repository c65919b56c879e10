package summary

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var uuidTokenRe = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// RewriteIdentifiers replaces opaque series identifiers in text with
// human-readable sensor names. Identifiers without a mapping stay as-is and
// get logged.
func RewriteIdentifiers(text string, names map[string]string, logger *zap.Logger) string {
	for id, name := range names {
		if name == "" {
			continue
		}
		text = strings.ReplaceAll(text, id, name)
	}

	for _, leftover := range uuidTokenRe.FindAllString(text, -1) {
		logger.Info("unmapped identifier left in result", zap.String("id", leftover))
	}
	return text
}
