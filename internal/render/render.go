package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"curator/internal/blob"
	"curator/internal/models"

	"github.com/fxamacker/cbor/v2"
)

const (
	rawExt      = ".cbor"
	renderedExt = ".json"
)

// ErrDecode marks a raw artifact whose bytes could not be decoded as
// a statement collection.
var ErrDecode = errors.New("statement decode failed")

// NotFoundError reports that neither the raw nor the rendered artifact
// for a logical name exists under the working root.
type NotFoundError struct {
	Name string
	Root string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("invalid name: neither %s%s nor %s%s exists in %s",
		e.Name, rawExt, e.Name, renderedExt, e.Root)
}

// Pipeline resolves logical names to rendered documents, rendering
// and persisting on first read.
type Pipeline struct {
	store     blob.Store
	root      string
	assembler Assembler
}

func New(store blob.Store, root string, assembler Assembler) *Pipeline {
	if assembler == nil {
		assembler = &groupAssembler{}
	}
	return &Pipeline{store: store, root: root, assembler: assembler}
}

// Resolve returns the rendered document for name. An existing rendered
// artifact is authoritative and returned as-is unless regen is set; on
// that path the grouped flag is ignored, so callers switching modes
// must pass regen=true.
func (p *Pipeline) Resolve(ctx context.Context, name string, regen, grouped bool) (*models.RenderedDocument, error) {
	locations, err := p.store.List(ctx, name)
	if err != nil {
		return nil, err
	}

	var location string
	rendered := false
	for _, loc := range locations {
		if strings.HasSuffix(loc, renderedExt) && !regen {
			location = loc
			rendered = true
			break
		}
		if strings.HasSuffix(loc, rawExt) {
			location = loc
		}
	}
	if location == "" {
		return nil, &NotFoundError{Name: name, Root: p.root}
	}

	raw, err := p.store.Read(ctx, location)
	if err != nil {
		return nil, err
	}

	if rendered {
		var doc models.RenderedDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse rendered %s: %w", location, err)
		}
		log.Printf("returning cached rendering for %s", name)
		return &doc, nil
	}

	var stmts []models.Statement
	if err := cbor.Unmarshal(raw, &stmts); err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", location, err, ErrDecode)
	}

	doc, err := p.render(stmts, grouped)
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rendering: %w", err)
	}
	renderedLoc := strings.TrimSuffix(location, rawExt) + renderedExt
	if err := p.store.Write(ctx, renderedLoc, out); err != nil {
		return nil, err
	}
	log.Printf("saved rendering for %s to %s", name, renderedLoc)
	return doc, nil
}

func (p *Pipeline) render(stmts []models.Statement, grouped bool) (*models.RenderedDocument, error) {
	doc := &models.RenderedDocument{Stmts: make([]json.RawMessage, 0, len(stmts)), Grouped: grouped}

	if grouped {
		for _, g := range p.assembler.MakeModel(stmts) {
			payload := make(map[string]any, len(g.Payload)+1)
			for k, v := range g.Payload {
				payload[k] = v
			}
			payload["key"] = g.Key
			b, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("marshal group %s: %w", g.Key, err)
			}
			doc.Stmts = append(doc.Stmts, b)
		}
		return doc, nil
	}

	ordered := make([]models.Statement, len(stmts))
	copy(ordered, stmts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i].Evidence) != len(ordered[j].Evidence) {
			return len(ordered[i].Evidence) > len(ordered[j].Evidence)
		}
		return ordered[i].Hash > ordered[j].Hash
	})
	for _, s := range ordered {
		b, err := json.Marshal(statementView(s))
		if err != nil {
			return nil, fmt.Errorf("marshal statement %d: %w", s.Hash, err)
		}
		doc.Stmts = append(doc.Stmts, b)
	}
	return doc, nil
}

func statementView(s models.Statement) models.StatementView {
	evidence := make([]string, 0, len(s.Evidence))
	for _, ev := range s.Evidence {
		evidence = append(evidence, formatEvidenceText(ev))
	}
	return models.StatementView{
		Evidence:      evidence,
		English:       formatStatementText(s),
		EvidenceCount: len(s.Evidence),
		Hash:          strconv.FormatInt(s.Hash, 10),
	}
}

// ListNames returns the distinct logical names discoverable under the
// working root, deduping raw/rendered siblings.
func (p *Pipeline) ListNames(ctx context.Context) ([]string, error) {
	locations, err := p.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, loc := range locations {
		name := strings.TrimPrefix(strings.TrimPrefix(loc, p.root), "/")
		switch {
		case strings.HasSuffix(name, rawExt):
			name = strings.TrimSuffix(name, rawExt)
		case strings.HasSuffix(name, renderedExt):
			name = strings.TrimSuffix(name, renderedExt)
		default:
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
