package prompt

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Category selects the prompt template applied to the user's input.
type Category int

const (
	// General is the fallback for missing or unrecognized categories.
	General Category = iota
	Rhyme
	Style
	Structure
	Improve

	numCategories
)

// Template is the system/user prompt pair for a category.
// An empty UserFormat passes the input through verbatim.
type Template struct {
	System     string
	UserFormat string
}

var names = [...]string{
	General:   "",
	Rhyme:     "rhyme",
	Style:     "style",
	Structure: "structure",
	Improve:   "improve",
}

var templates = [...]Template{
	General: {
		System: "You are a creative poetry assistant. Help with poetry writing, provide inspiration, and offer constructive feedback.",
	},
	Rhyme: {
		System:     "You are a poetry assistant that suggests rhyming words. Provide 5-8 rhyming words that would work well in poetry. Be creative and consider different rhyme schemes. Use markdown formatting.",
		UserFormat: `Suggest rhyming words for: "%s". Format your response with a header and list the rhyming words with bullet points.`,
	},
	Style: {
		System:     "You are a poetry expert. Explain the given poetic style in a clear, engaging way using markdown formatting. Structure your response with headers, bullet points, and examples.",
		UserFormat: `Explain the poetic style: "%s". Use markdown formatting with headers (##), bullet points, and clear examples.`,
	},
	Structure: {
		System:     "You are a poetry structure expert. Suggest a poetic structure or form that would work well for the given theme or content. Use markdown formatting with clear sections and examples.",
		UserFormat: `Suggest a poetic structure for: "%s". Use markdown formatting with headers (##), bullet points, and provide a brief example.`,
	},
	Improve: {
		System:     "You are a poetry editor. Help improve the given poem by suggesting enhancements, better word choices, or structural improvements. Be constructive and encouraging. Use markdown formatting with clear sections.",
		UserFormat: `Help improve this poem: "%s". Use markdown formatting with headers (##), bullet points, and specific suggestions.`,
	},
}

// compile-time check that every category has a name and a template
var (
	_ [numCategories]string   = names
	_ [numCategories]Template = templates
)

// ParseCategory maps a wire tag to a Category. Unknown tags map to General.
func ParseCategory(s string) Category {
	for c := Rhyme; c < numCategories; c++ {
		if names[c] == s {
			return c
		}
	}
	return General
}

// Categories returns the selectable categories in display order.
func Categories() []Category {
	return []Category{Rhyme, Style, Structure, Improve}
}

func (c Category) valid() bool {
	return c >= General && c < numCategories
}

// String returns the wire tag; General has an empty tag.
func (c Category) String() string {
	if !c.valid() {
		return ""
	}
	return names[c]
}

// Lookup returns the template for c, falling back to General.
func Lookup(c Category) Template {
	return templates[lo.Ternary(c.valid(), c, General)]
}

// UserPrompt renders the user half of the prompt.
func (t Template) UserPrompt(input string) string {
	if t.UserFormat == "" {
		return input
	}
	// input is spliced in literally; a "%" in it must not be read as a verb
	return strings.Replace(t.UserFormat, "%s", input, 1)
}

// Build returns the single prompt string sent upstream.
func Build(c Category, input string) string {
	t := Lookup(c)
	return fmt.Sprintf("%s\n\nUser: %s\n\nAssistant:", t.System, t.UserPrompt(input))
}
