package render

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestRenderMarkdown(t *testing.T) {
	RegisterTestingT(t)

	r, err := New(60, StyleNoTTY)
	Expect(err).To(BeNil())

	out := r.Render("## Rhymes for moon\n\n- June\n- *tune*\n\n> spoon\n\n`croon`")
	Expect(out).To(ContainSubstring("Rhymes for moon"))
	Expect(out).To(ContainSubstring("June"))
	Expect(out).To(ContainSubstring("tune"))
	Expect(out).To(ContainSubstring("spoon"))
	Expect(out).To(ContainSubstring("croon"))
	Expect(out).NotTo(HavePrefix("\n"))
}

func TestNilRendererPassesThrough(t *testing.T) {
	RegisterTestingT(t)

	var r *Renderer
	Expect(r.Render("# raw")).To(Equal("# raw"))
}

func TestUnknownStyle(t *testing.T) {
	RegisterTestingT(t)

	_, err := New(40, "no-such-style")
	Expect(err).NotTo(BeNil())
}
