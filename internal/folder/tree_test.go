package folder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feichai0017/docfiler/internal/models"
)

func TestSegmentsEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Receipts", "receipts", true},
		{"Receipts", "Receipt", true}, // plural-insensitive
		{"Tax Documents", "Taxes", true},
		{"Tax Documents", "Tax Returns", true},
		{"Driver Licenses", "Driver's License", true},
		{"Driver Licenses", "DL", true},
		{"Bank Statements", "Account Statements", true},
		{"Receipts", "Invoices", false},
		{"Identity", "Income", false},
		{"  Medical   Records ", "Health Records", true},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, segmentsEqual(tt.a, tt.b))
		})
	}
}

func TestTreeChildExactBeforeFuzzy(t *testing.T) {
	nodes := []models.FolderNode{
		{ID: "1", Name: "Receipts", PathSegments: []string{"Receipts"}},
		{ID: "2", Name: "Receipt", PathSegments: []string{"Receipt"}},
	}
	tr := newTree(nodes)

	// Exact name wins even when a fuzzy sibling exists.
	node, ok := tr.child("", "Receipt", true)
	assert.True(t, ok)
	assert.Equal(t, "2", node.ID)

	// Fuzzy disabled: near-miss names do not match.
	_, ok = tr.child("", "Recibo", false)
	assert.False(t, ok)
}

func TestTreeLookupIsCaseInsensitive(t *testing.T) {
	nodes := []models.FolderNode{
		{ID: "1", Name: "Expenses", PathSegments: []string{"Expenses"}},
		{ID: "2", Name: "2024", ParentID: "1", PathSegments: []string{"Expenses", "2024"}},
	}
	tr := newTree(nodes)

	node, ok := tr.lookup([]string{"expenses", "2024"})
	assert.True(t, ok)
	assert.Equal(t, "2", node.ID)

	_, ok = tr.lookup([]string{"Expenses", "2023"})
	assert.False(t, ok)
}
