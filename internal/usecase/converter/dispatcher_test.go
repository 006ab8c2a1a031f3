package converter

import (
	"testing"

	"doc-converter/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refs(t *testing.T, keys ...string) []domain.SourceFileRef {
	t.Helper()
	var out []domain.SourceFileRef
	for _, k := range keys {
		ref, ok := domain.NewSourceFileRef("gs", "b", k)
		require.True(t, ok, k)
		out = append(out, ref)
	}
	return out
}

func TestPartition(t *testing.T) {
	in := refs(t,
		"in/a.docx", "in/b.jpg", "in/c.db", "in/d.xlsx",
		"in/e.MSG", "in/f.txt", "in/g.pptx", "in/h.doc", "in/README",
	)

	parts, dropped := Partition(in)

	assert.Len(t, parts[domain.ClassDocument], 2)
	assert.Equal(t, "a.docx", parts[domain.ClassDocument][0].Name)
	assert.Equal(t, "h.doc", parts[domain.ClassDocument][1].Name)
	assert.Len(t, parts[domain.ClassImage], 1)
	assert.Len(t, parts[domain.ClassDatabase], 1)
	assert.Len(t, parts[domain.ClassSpreadsheet], 1)
	assert.Len(t, parts[domain.ClassMail], 1)
	assert.Len(t, parts[domain.ClassPresentation], 1)
	assert.Empty(t, parts[domain.ClassRichText])

	require.Len(t, dropped, 2)
	assert.Equal(t, "f.txt", dropped[0].Name)
	assert.Equal(t, "README", dropped[1].Name)

	total := len(dropped)
	for _, p := range parts {
		total += len(p)
	}
	assert.Equal(t, len(in), total)
}

func TestPartition_Disjoint(t *testing.T) {
	parts, _ := Partition(refs(t, "a.docx", "b.png", "c.rtf"))

	seen := map[string]domain.FormatClass{}
	for class, items := range parts {
		for _, r := range items {
			prev, dup := seen[r.Key]
			assert.False(t, dup, "%s in %s and %s", r.Key, prev, class)
			seen[r.Key] = class
		}
	}
	assert.Len(t, seen, 3)
}
