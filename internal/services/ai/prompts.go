package ai

import (
	"net/url"
	"strings"
)

const refineRoleSection = `<ROLE>
You are a helpful assistant that specializes in formatting recipes.
</ROLE>`

const refineTaskSection = `<TASK>
The text below was extracted from a social media video description. Format it into a clear,
easy-to-read recipe with:
- a title
- a list of ingredients
- numbered instructions

If the text does not appear to be a recipe, return the original text unchanged.
</TASK>`

const metricRoleSection = `<ROLE>
You are a helpful assistant that specializes in converting recipe measurements.
</ROLE>`

const metricTaskSection = `<TASK>
The recipe below may use imperial units. Convert every volume and weight measurement
(oz, lb, cups, tbsp, tsp, ...) to grams.
- Keep the original structure and the order of the instructions.
- If a measurement cannot be converted to grams ("1 large egg", "a pinch of salt"), leave it as is.
- Return only the converted recipe.
</TASK>`

const audioTaskSection = `<TASK>
Listen to the audio from this cooking video. Transcribe any spoken instructions, tips or steps
that are relevant to the recipe.
- Ignore background music and chatter that is not about the recipe.
- If there are no spoken instructions, say so clearly in one sentence.
- Present the instructions as a clear list.
</TASK>`

const mergeRoleSection = `<ROLE>
You are a master recipe editor.
</ROLE>`

const mergeTaskSection = `<TASK>
Below is a recipe generated from a video's description text and a set of notes transcribed from
the video's audio. Create one final, comprehensive recipe by merging the audio notes into the
recipe instructions.
- The result must be logical, easy to follow and complete.
- Remove information that is not about cooking, such as calls to like, comment, follow or subscribe.
</TASK>`

const plainTextSection = `<OUTPUT_FORMAT>
Plain text only. Do not use Markdown, code fences or HTML.
</OUTPUT_FORMAT>`

const inputDivider = "\n\n---\n\n"

// PlatformFromURL names the social network a video link points at, or "" if unknown.
func PlatformFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com"):
		return "instagram"
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		return "tiktok"
	case host == "youtube.com" || host == "youtu.be" || strings.HasSuffix(host, ".youtube.com"):
		return "youtube"
	default:
		return ""
	}
}

func getPlatformContext(platform string) string {
	switch strings.ToLower(platform) {
	case "instagram":
		return `<PLATFORM_CONTEXT>
This description comes from Instagram. Captions often hold the full ingredient list, sometimes
formatted with emojis or bullet points, mixed with hashtags. Drop the hashtags from the recipe.
</PLATFORM_CONTEXT>`
	case "tiktok":
		return `<PLATFORM_CONTEXT>
This description comes from TikTok. Captions are often minimal and measurements informal
("a splash of", "eyeball it"). Keep informal measurements as written.
</PLATFORM_CONTEXT>`
	case "youtube":
		return `<PLATFORM_CONTEXT>
This description comes from YouTube. Descriptions may contain timestamps, sponsor messages and
links. Leave those out of the recipe.
</PLATFORM_CONTEXT>`
	default:
		return ""
	}
}

func build(sections ...string) string {
	var sb strings.Builder
	for _, s := range sections {
		if s == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(s)
	}
	return sb.String()
}

// BuildRefinePrompt builds the prompt that turns a raw description into a structured recipe
func BuildRefinePrompt(description, platform string) string {
	return build(refineRoleSection, getPlatformContext(platform), refineTaskSection, plainTextSection) +
		inputDivider + description
}

// BuildMetricPrompt builds the prompt that converts a recipe's measurements to grams
func BuildMetricPrompt(recipe string) string {
	return build(metricRoleSection, metricTaskSection, plainTextSection) + inputDivider + recipe
}

// BuildAudioNotesPrompt builds the prompt sent alongside the uploaded audio track
func BuildAudioNotesPrompt() string {
	return build(audioTaskSection, plainTextSection)
}

// BuildMergePrompt builds the prompt that folds audio notes into the recipe
func BuildMergePrompt(recipe, audioNotes string) string {
	return build(mergeRoleSection, mergeTaskSection, plainTextSection) +
		"\n\n--- RECIPE FROM TEXT ---\n" + recipe +
		"\n\n--- NOTES FROM AUDIO ---\n" + audioNotes +
		"\n\n--- FINAL COMPREHENSIVE RECIPE ---"
}
