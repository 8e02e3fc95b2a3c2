package render

import (
	"sort"
	"strconv"
	"strings"

	"curator/internal/models"
)

// Group is one grouped-mode output unit. Key is attached to the
// serialized payload as the "key" field.
type Group struct {
	Key     string
	Payload map[string]any
}

// Assembler turns a statement collection into grouped output.
// Grouping key and group order are assembler-defined.
type Assembler interface {
	MakeModel(stmts []models.Statement) []Group
}

// groupAssembler groups statements that share an English summary,
// ordered by descending total evidence, keyed by the representative
// statement's hash.
type groupAssembler struct{}

func (a *groupAssembler) MakeModel(stmts []models.Statement) []Group {
	type bucket struct {
		english string
		stmts   []models.Statement
		total   int
	}
	byEnglish := make(map[string]*bucket)
	order := make([]string, 0)
	for _, s := range stmts {
		english := formatStatementText(s)
		b, ok := byEnglish[english]
		if !ok {
			b = &bucket{english: english}
			byEnglish[english] = b
			order = append(order, english)
		}
		b.stmts = append(b.stmts, s)
		b.total += len(s.Evidence)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return byEnglish[order[i]].total > byEnglish[order[j]].total
	})

	groups := make([]Group, 0, len(order))
	for _, english := range order {
		b := byEnglish[english]
		sort.SliceStable(b.stmts, func(i, j int) bool {
			if len(b.stmts[i].Evidence) != len(b.stmts[j].Evidence) {
				return len(b.stmts[i].Evidence) > len(b.stmts[j].Evidence)
			}
			return b.stmts[i].Hash > b.stmts[j].Hash
		})
		views := make([]models.StatementView, 0, len(b.stmts))
		for _, s := range b.stmts {
			views = append(views, statementView(s))
		}
		groups = append(groups, Group{
			Key: strconv.FormatInt(b.stmts[0].Hash, 10),
			Payload: map[string]any{
				"english":        b.english,
				"evidence_count": b.total,
				"stmts":          views,
			},
		})
	}
	return groups
}

func formatStatementText(s models.Statement) string {
	text := strings.TrimSpace(s.English)
	if text == "" {
		return text
	}
	text = strings.ToUpper(text[:1]) + text[1:]
	if !strings.HasSuffix(text, ".") {
		text += "."
	}
	return text
}

func formatEvidenceText(ev models.Evidence) string {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		text = "(no evidence text)"
	}
	src := ev.SourceAPI
	if ev.PMID != "" {
		src += ", PMID " + ev.PMID
	}
	if src == "" {
		return text
	}
	return text + " [" + src + "]"
}
