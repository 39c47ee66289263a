package folder

import (
	"strings"

	"github.com/feichai0017/docfiler/internal/models"
)

// folderAliases maps canonical folder names to names users commonly give
// the same folder. Matching consults both directions.
var folderAliases = map[string][]string{
	"Driver Licenses": {"Driver License", "Drivers License", "Driver's License", "DL"},
	"Passports":       {"Passport"},
	"ID Cards":        {"ID Card", "Identification Cards"},
	"Bank Statements": {"Bank Statement", "Account Statements"},
	"Tax Documents":   {"Tax Document", "Taxes", "Tax Returns"},
	"Medical Records": {"Medical Record", "Health Records"},
	"Contracts":       {"Contract", "Agreements"},
	"Receipts":        {"Receipt"},
	"Invoices":        {"Invoice"},
	"Expenses":        {"Expense"},
}

// aliasCanonical maps every normalized alias to its normalized canonical
// name, built once at init.
var aliasCanonical = func() map[string]string {
	m := make(map[string]string)
	for canonical, aliases := range folderAliases {
		normCanonical := normalizeSegment(canonical)
		m[normCanonical] = normCanonical
		for _, a := range aliases {
			m[normalizeSegment(a)] = normCanonical
		}
	}
	return m
}()

// normalizeSegment lowercases, collapses whitespace and strips a trailing
// plural so "Receipts" and "receipt" compare equal.
func normalizeSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "'", "")
	if strings.HasSuffix(s, "es") && len(s) > 3 {
		s = strings.TrimSuffix(s, "es")
	} else if strings.HasSuffix(s, "s") && len(s) > 2 {
		s = strings.TrimSuffix(s, "s")
	}
	return s
}

// segmentsEqual reports whether two folder names refer to the same folder,
// after normalization and alias resolution.
func segmentsEqual(a, b string) bool {
	na, nb := normalizeSegment(a), normalizeSegment(b)
	if na == nb {
		return true
	}
	if ca, ok := aliasCanonical[na]; ok {
		if cb, ok := aliasCanonical[nb]; ok {
			return ca == cb
		}
		return ca == nb
	}
	if cb, ok := aliasCanonical[nb]; ok {
		return cb == na
	}
	return false
}

// tree is an immutable snapshot of one vault's folders, indexed for the
// resolver's walk.
type tree struct {
	byID       map[string]models.FolderNode
	byPath     map[string]models.FolderNode
	childrenOf map[string][]models.FolderNode
}

func newTree(nodes []models.FolderNode) *tree {
	t := &tree{
		byID:       make(map[string]models.FolderNode, len(nodes)),
		byPath:     make(map[string]models.FolderNode, len(nodes)),
		childrenOf: make(map[string][]models.FolderNode),
	}
	for _, n := range nodes {
		t.byID[n.ID] = n
		t.byPath[pathKey(n.PathSegments)] = n
		t.childrenOf[n.ParentID] = append(t.childrenOf[n.ParentID], n)
	}
	return t
}

func pathKey(segments []string) string {
	lowered := make([]string, len(segments))
	for i, s := range segments {
		lowered[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return strings.Join(lowered, "/")
}

// lookup finds the folder at an exact (case-insensitive) path.
func (t *tree) lookup(segments []string) (models.FolderNode, bool) {
	n, ok := t.byPath[pathKey(segments)]
	return n, ok
}

// child finds a child of parentID matching the segment, exact name first,
// then fuzzy. Fuzzy matching is only applied at the deepest levels of a
// walk; shallow structural segments must match exactly.
func (t *tree) child(parentID, segment string, fuzzy bool) (models.FolderNode, bool) {
	children := t.childrenOf[parentID]
	for _, c := range children {
		if strings.EqualFold(c.Name, segment) {
			return c, true
		}
	}
	if fuzzy {
		for _, c := range children {
			if segmentsEqual(c.Name, segment) {
				return c, true
			}
		}
	}
	return models.FolderNode{}, false
}

// Hints adapts a snapshot to the classifier's FolderHints.
type Hints struct {
	t *tree
}

// NewHints builds folder hints from a vault snapshot.
func NewHints(nodes []models.FolderNode) *Hints {
	return &Hints{t: newTree(nodes)}
}

func (h *Hints) HasPath(segments []string) bool {
	_, ok := h.t.lookup(segments)
	return ok
}
