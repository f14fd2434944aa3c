package models

import "strings"

// ContextPart is one document's contribution to an assembled context.
type ContextPart struct {
	DocumentID string
	Title      string
	Excerpt    string
}

// Context is the ordered, bounded-size text block handed to the answer
// generator. Parts keep document boundaries and provenance; a part is either
// included whole or not at all, except the top-ranked part which may be
// truncated (Truncated reports this) so the context is never empty when at
// least one document was ranked.
type Context struct {
	Parts     []ContextPart
	Truncated bool
}

// Empty reports whether the context contains no document material.
func (c *Context) Empty() bool {
	return c == nil || len(c.Parts) == 0
}

// DocumentIDs returns the ids of the documents included in the context, in
// rank order.
func (c *Context) DocumentIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, len(c.Parts))
	for i, p := range c.Parts {
		ids[i] = p.DocumentID
	}
	return ids
}

// Text renders the context as generator input. Each part is framed with its
// document title so the model can attribute material, and parts are separated
// by a divider line.
func (c *Context) Text() string {
	if c.Empty() {
		return ""
	}
	parts := make([]string, len(c.Parts))
	for i, p := range c.Parts {
		parts[i] = "[Document: " + p.Title + "]\n" + p.Excerpt
	}
	return strings.Join(parts, "\n---\n")
}
