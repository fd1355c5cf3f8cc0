package answer

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
)

// wordCounter counts whitespace-separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func chunk(title, typ, doc string, extra ...string) candidate.Candidate {
	meta := map[string]string{candidate.MetaType: typ}
	for i := 0; i+1 < len(extra); i += 2 {
		meta[extra[i]] = extra[i+1]
	}
	return candidate.New(title, title, 0.1, doc, meta)
}

func TestFormatChunk(t *testing.T) {
	tests := []struct {
		name string
		in   candidate.Candidate
		want string
	}{
		{"monster raw", chunk("Black Dragon", "monster", "BLACK DRAGON\nAC 3"), "BLACK DRAGON\nAC 3"},
		{"category raw", chunk("Dragons", "category", "DRAGONS overview"), "DRAGONS overview"},
		{
			"spell with school",
			chunk("Fireball", "spell", "A burst of flame.", candidate.MetaSpellSchool, "Evocation"),
			"## Fireball\nEvocation\n\nA burst of flame.",
		},
		{"monster entry", chunk("Orc", "monster_entry", "Orcs are fierce."), "## Orc\n\nOrcs are fierce."},
		{"table prefix", chunk("Attack Matrix", "table_combat", "| 1 | 2 |"), "## Attack Matrix\n\n| 1 | 2 |"},
		{"default", chunk("Surprise", "rule", "Roll d6."), "### Surprise\n\nRoll d6."},
		{"missing type", candidate.New("x", "Morale", 0, "Check morale.", nil), "### Morale\n\nCheck morale."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatChunk(&tt.in); got != tt.want {
				t.Errorf("FormatChunk() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssemble_JoinsInOrder(t *testing.T) {
	a := NewAssembler(nil, 0)
	text, n := a.Assemble([]candidate.Candidate{
		chunk("A", "rule", "one"),
		chunk("B", "rule", "two"),
	})
	if n != 2 {
		t.Fatalf("expected 2 chunks, got %d", n)
	}
	want := "### A\n\none\n\n---\n\n### B\n\ntwo"
	if text != want {
		t.Errorf("Assemble() = %q, want %q", text, want)
	}
}

func TestAssemble_Empty(t *testing.T) {
	text, n := NewAssembler(wordCounter{}, 10).Assemble(nil)
	if text != "" || n != 0 {
		t.Errorf("expected empty context, got %q, %d", text, n)
	}
}

func TestAssemble_TokenBudget(t *testing.T) {
	cands := []candidate.Candidate{
		chunk("A", "monster", "w w w w"),
		chunk("B", "monster", "w w w"),
		chunk("C", "monster", "w"),
	}

	// First chunk: 4 words. Second: separator "---" + 3 words = 4.
	text, n := NewAssembler(wordCounter{}, 8).Assemble(cands)
	if n != 2 {
		t.Fatalf("expected 2 chunks within budget, got %d (%q)", n, text)
	}
	if want := "w w w w\n\n---\n\nw w w"; text != want {
		t.Errorf("Assemble() = %q, want %q", text, want)
	}
}

func TestAssemble_FirstChunkAlwaysKept(t *testing.T) {
	cands := []candidate.Candidate{
		chunk("A", "monster", "w w w w w w"),
		chunk("B", "monster", "w"),
	}

	text, n := NewAssembler(wordCounter{}, 2).Assemble(cands)
	if n != 1 {
		t.Fatalf("expected only the first chunk, got %d", n)
	}
	if text != "w w w w w w" {
		t.Errorf("unexpected context %q", text)
	}
}

func TestAssemble_KeepsPinnedEntityAtTail(t *testing.T) {
	words := strings.Repeat("w ", 40)
	cands := []candidate.Candidate{
		chunk("Black Dragon", "monster", words),
		chunk("Dragon Lore 1", "monster", words),
		chunk("Dragon Lore 2", "monster", words),
		chunk("Gold Dragon", "monster", "GOLD "+words),
	}

	text, n := NewAssembler(wordCounter{}, 130).Assemble(cands, "Black Dragon", "Gold Dragon")
	if n != 3 {
		t.Fatalf("expected 3 chunks, got %d", n)
	}
	if !strings.Contains(text, "GOLD") {
		t.Error("pinned entity chunk was dropped")
	}
	if got := strings.Count(text, chunkSeparator); got != 2 {
		t.Errorf("expected 2 separators, got %d", got)
	}
}

func TestAssemble_PinnedOverBudgetStays(t *testing.T) {
	cands := []candidate.Candidate{
		chunk("A", "monster", "w w w"),
		chunk("B", "monster", "w w w"),
		chunk("C", "monster", "w w w"),
	}

	text, n := NewAssembler(wordCounter{}, 4).Assemble(cands, "C")
	if n != 2 {
		t.Fatalf("expected first and pinned chunk, got %d", n)
	}
	if want := "w w w\n\n---\n\nw w w"; text != want {
		t.Errorf("Assemble() = %q, want %q", text, want)
	}
}
