package classifier

import (
	"fmt"
	"strings"

	"github.com/libtrackai/libtrack/internal/models"
)

const systemPrompt = `You are a software release analyst. You are given web search evidence about a software component and must determine its latest or upcoming version. Respond with a single JSON object and nothing else.`

// buildPrompt renders the classification prompt for a component and its
// gathered evidence. The response contract matches ClassificationSignal's
// JSON field names.
func buildPrompt(component *models.TrackedComponent, evidence *models.SearchEvidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Component: %s (%s)\n", component.Name, component.Kind)
	fmt.Fprintf(&b, "Currently installed version: %s\n\n", component.CurrentVersion)

	b.WriteString("Search evidence:\n")
	for i, snippet := range evidence.Snippets {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, snippet.Title)
		if snippet.Snippet != "" {
			fmt.Fprintf(&b, "    %s\n", snippet.Snippet)
		}
		if snippet.URL != "" {
			fmt.Fprintf(&b, "    %s\n", snippet.URL)
		}
	}

	if evidence.LatestVersionCandidate != "" {
		fmt.Fprintf(&b, "\nVersion mentions in the evidence suggest %s may be the latest version.\n", evidence.LatestVersionCandidate)
	}

	b.WriteString(`
Analyze the evidence and answer with JSON only:
{
  "library": "component name",
  "latest_version": "newest version found, released or announced",
  "is_released": true if that version is already shipped, false if only planned or in pre-release,
  "release_date": "YYYY-MM-DD when released, empty if unknown",
  "expected_release_date": "YYYY-MM-DD or period when a future version is expected, empty if unknown",
  "update_type": "major, minor, or future",
  "confidence": 0-100 integer for how certain you are,
  "key_features": ["up to 5 notable changes"],
  "source_url": "most authoritative URL from the evidence",
  "summary": "one or two sentences"
}

Rules:
- Use "future" for update_type when is_released is false.
- Prefer official project sources (release pages, changelogs, project blogs) over news and forums.
- Only report versions newer than the currently installed version. If nothing newer exists, report the installed version with is_released true.
- Do not invent versions that are not in the evidence.`)

	return b.String()
}
