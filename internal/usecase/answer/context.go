package answer

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
)

const chunkSeparator = "\n\n---\n\n"

// TokenCounter counts model tokens in a text.
type TokenCounter interface {
	Count(text string) int
}

// Assembler renders retrieved chunks into prompt context.
type Assembler struct {
	counter   TokenCounter
	maxTokens int
}

// NewAssembler creates a context assembler. A nil counter or maxTokens <= 0
// disables the token budget.
func NewAssembler(counter TokenCounter, maxTokens int) *Assembler {
	return &Assembler{counter: counter, maxTokens: maxTokens}
}

// Assemble joins formatted chunks in order and returns the context text and
// the number of chunks it holds. Over the token budget, the farthest chunk
// that is neither first nor pinned (by id) is dropped until the rest fits.
// Pinned chunks stay even when they alone exceed the budget.
func (a *Assembler) Assemble(cands []candidate.Candidate, pinned ...string) (string, int) {
	if len(cands) == 0 {
		return "", 0
	}

	parts := make([]string, len(cands))
	for i := range cands {
		parts[i] = FormatChunk(&cands[i])
	}

	keep := make([]bool, len(parts))
	for i := range keep {
		keep[i] = true
	}
	if a.counter != nil && a.maxTokens > 0 {
		a.trim(cands, parts, keep, pinned)
	}

	var sb strings.Builder
	n := 0
	for i, part := range parts {
		if !keep[i] {
			continue
		}
		if n > 0 {
			sb.WriteString(chunkSeparator)
		}
		sb.WriteString(part)
		n++
	}
	return sb.String(), n
}

func (a *Assembler) trim(cands []candidate.Candidate, parts []string, keep []bool, pinned []string) {
	sep := a.counter.Count(chunkSeparator)
	cost := make([]int, len(parts))
	used := 0
	for i, part := range parts {
		cost[i] = a.counter.Count(part)
		if i > 0 {
			cost[i] += sep
		}
		used += cost[i]
	}

	for i := len(parts) - 1; i > 0 && used > a.maxTokens; i-- {
		if slices.Contains(pinned, cands[i].ID()) {
			continue
		}
		keep[i] = false
		used -= cost[i]
	}
}

// FormatChunk renders one chunk according to its type.
// Monster and category chunks carry their own header.
func FormatChunk(c *candidate.Candidate) string {
	name := c.Title()
	doc := c.Document()

	switch typ := c.Meta(candidate.MetaType); {
	case typ == "monster" || typ == "category":
		return doc
	case typ == "spell":
		return "## " + name + "\n" + c.Meta(candidate.MetaSpellSchool) + "\n\n" + doc
	case typ == "monster_entry" || strings.HasPrefix(typ, "table"):
		return "## " + name + "\n\n" + doc
	default:
		return "### " + name + "\n\n" + doc
	}
}
