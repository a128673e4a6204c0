package prompt

// Meta is the presentational data shown for a category.
type Meta struct {
	Label       string // tab label
	Title       string // history entry title
	InputTitle  string
	Description string
	Placeholder string
	Glyph       string
}

var metas = [...]Meta{
	General: {
		Label:       "Assistant",
		Title:       "Poetry Assistant",
		InputTitle:  "Poetry Assistant",
		Description: "Ask me anything about poetry",
		Placeholder: "How can I help you with poetry today?",
		Glyph:       "✦",
	},
	Rhyme: {
		Label:       "Rhymes",
		Title:       "Rhyming Words",
		InputTitle:  "Find Rhyming Words",
		Description: "Enter a word to discover beautiful rhyming options",
		Placeholder: `Enter a word (e.g., "love", "dream", "light")`,
		Glyph:       "✦",
	},
	Style: {
		Label:       "Styles",
		Title:       "Poetic Style Guide",
		InputTitle:  "Explore Poetic Styles",
		Description: "Learn about different poetry styles and techniques",
		Placeholder: `Enter a style (e.g., "haiku", "sonnet", "free verse")`,
		Glyph:       "❦",
	},
	Structure: {
		Label:       "Structure",
		Title:       "Poem Structure",
		InputTitle:  "Discover Poetic Structures",
		Description: "Get suggestions for poem structure and form",
		Placeholder: `Enter a theme or topic (e.g., "nature", "love", "loss")`,
		Glyph:       "✎",
	},
	Improve: {
		Label:       "Improve",
		Title:       "Poem Improvements",
		InputTitle:  "Improve Your Poem",
		Description: "Get feedback and suggestions to enhance your writing",
		Placeholder: "Paste your poem here for improvement suggestions",
		Glyph:       "♥",
	},
}

var _ [numCategories]Meta = metas

// Meta returns the presentational data for c.
func (c Category) Meta() Meta {
	if !c.valid() {
		return metas[General]
	}
	return metas[c]
}

// Next returns the selectable category after c, wrapping around.
func (c Category) Next() Category {
	all := Categories()
	for i, other := range all {
		if other == c {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

// Prev returns the selectable category before c, wrapping around.
func (c Category) Prev() Category {
	all := Categories()
	for i, other := range all {
		if other == c {
			return all[(i+len(all)-1)%len(all)]
		}
	}
	return all[0]
}
