package codec

import (
	"html"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/common"
)

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	blockClose = regexp.MustCompile(`(?i)</(p|div|li|ul|ol|h[1-6])>|<br\s*/?>`)
	mdPrefix   = regexp.MustCompile(`^\s*(#{1,6}\s+|>\s*|[-*+]\s+(\[[ xX]\]\s+)?|\d+\.\s+)`)
	mdInline   = strings.NewReplacer("**", "", "__", "", "`", "", "~~", "")
)

// DerivePreview returns the plaintext preview stored alongside a note: the
// first non-empty line of content with markup removed, cut to
// common.PreviewMaxRunes runes.
func DerivePreview(content string, t models.NoteType) string {
	text := content
	switch t {
	case models.NoteTypeRich, models.NoteTypeChecklist:
		text = blockClose.ReplaceAllString(text, "\n")
		text = htmlTag.ReplaceAllString(text, "")
		text = html.UnescapeString(text)
	case models.NoteTypeMarkdown:
		text = mdInline.Replace(text)
	}

	for _, line := range strings.Split(text, "\n") {
		if t == models.NoteTypeMarkdown {
			line = mdPrefix.ReplaceAllString(line, "")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return truncateRunes(line, common.PreviewMaxRunes)
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
