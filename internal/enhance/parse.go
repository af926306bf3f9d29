package enhance

import "strings"

// Markers the prompt instructs the model to emit. Parse and the prompt
// template form one contract; changing either alone breaks the other.
const (
	enhancedMarker = "优化后的文本："
	tagsMarker     = "相关标签："
)

// Parse splits a raw enhancement response into the polished text and the
// hashtag list. Sections are delimited by blank lines; the section opening
// with the enhanced-text marker becomes the text, the one opening with
// the tags marker is space-split and filtered to #-prefixed tokens.
// Without an enhanced-text section the whole response is returned
// verbatim; without a tags section the tag list is empty.
func Parse(raw string) (string, []string) {
	enhanced := raw
	var tags []string

	for _, section := range strings.Split(raw, "\n\n") {
		switch {
		case strings.HasPrefix(section, enhancedMarker):
			enhanced = strings.TrimSpace(strings.TrimPrefix(section, enhancedMarker))
		case strings.HasPrefix(section, tagsMarker):
			body := strings.TrimSpace(strings.TrimPrefix(section, tagsMarker))
			for _, tok := range strings.Fields(body) {
				if strings.HasPrefix(tok, "#") {
					tags = append(tags, strings.TrimSpace(tok))
				}
			}
		}
	}

	return enhanced, tags
}
