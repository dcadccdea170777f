// ABOUTME: Shared decoding for the OpenAI-style responses API shape.
// ABOUTME: URL citations are spliced back into the text as markdown links.

package provider

import "sort"

type responsesResult struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type        string       `json:"type"`
			Text        string       `json:"text"`
			Annotations []annotation `json:"annotations"`
		} `json:"content"`
	} `json:"output"`
}

type annotation struct {
	Type       string `json:"type"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// text concatenates the message output parts and splices url_citation
// annotations in as markdown links. Splicing runs back-to-front so earlier
// indexes stay valid as the text grows.
func (r *responsesResult) text() string {
	var text string
	var citations []annotation
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type != "output_text" {
				continue
			}
			text += part.Text
			for _, ann := range part.Annotations {
				if ann.Type == "url_citation" {
					citations = append(citations, ann)
				}
			}
		}
	}
	if len(citations) == 0 {
		return text
	}

	sort.Slice(citations, func(i, j int) bool {
		return citations[i].StartIndex > citations[j].StartIndex
	})
	for _, ann := range citations {
		title := ann.Title
		if title == "" {
			title = ann.URL
		}
		start, end := ann.StartIndex, ann.EndIndex
		if start < 0 || start > len(text) {
			continue
		}
		if end < start {
			end = start
		}
		if end > len(text) {
			end = len(text)
		}
		text = text[:start] + "[" + title + "](" + ann.URL + ")" + text[end:]
	}
	return text
}
