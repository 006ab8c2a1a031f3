package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"doc-converter/internal/domain"
	"doc-converter/internal/repository/document/local"
	"doc-converter/internal/usecase/converter/operations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

const (
	srcPrefix  = "Arquivos Docx/"
	destPrefix = "Arquivos Pdf/"
)

type countingStore struct {
	*local.FileRepository
	downloads atomic.Int32
}

func (s *countingStore) Download(ctx context.Context, key, localPath string) error {
	s.downloads.Add(1)
	return s.FileRepository.Download(ctx, key, localPath)
}

type fakeStrategy struct {
	name  string
	err   error
	panic bool
	calls atomic.Int32
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Convert(_ context.Context, input, outDir string) (string, error) {
	f.calls.Add(1)
	if f.panic {
		panic("renderer exploded")
	}
	out := operations.OutputPath(input, outDir)
	if f.err != nil {
		// leave a partial file behind to check cleanup
		_ = os.WriteFile(out, []byte("partial"), 0o644)
		return "", f.err
	}
	return out, os.WriteFile(out, []byte("%PDF-1.4"), 0o644)
}

type fixture struct {
	store   *countingStore
	scratch string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := local.NewLocalRepository(t.TempDir(), "demo")
	require.NoError(t, err)
	return &fixture{store: &countingStore{FileRepository: repo}, scratch: t.TempDir()}
}

func (f *fixture) put(t *testing.T, key string) domain.SourceFileRef {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), key, strings.NewReader("bytes"), 5, ""))
	ref, ok := domain.NewSourceFileRef("file", "demo", key)
	require.True(t, ok)
	return ref
}

func (f *fixture) set(t *testing.T, strategies map[domain.FormatClass][]Strategy) *Set {
	t.Helper()
	zlog.Init()
	set, err := NewSetWith(strategies, f.store, destPrefix, f.scratch, &zlog.Logger)
	require.NoError(t, err)
	return set
}

func (f *fixture) convert(t *testing.T, set *Set, ref domain.SourceFileRef) domain.Outcome {
	t.Helper()
	class, ok := Classify(ref.Ext)
	require.True(t, ok)
	c, err := set.For(class)
	require.NoError(t, err)
	return c.Convert(context.Background(), ref)
}

func scratchEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestConvert_DatabaseIsUnsupported(t *testing.T) {
	f := newFixture(t)
	ref := f.put(t, srcPrefix+"dados.db")

	o := f.convert(t, f.set(t, nil), ref)
	require.False(t, o.OK())
	assert.Equal(t, domain.ReasonUnsupported, o.Failure.Reason)
	assert.Equal(t, domain.StatusUnsupported, o.Status())
	assert.Zero(t, f.store.downloads.Load())
	assert.Empty(t, scratchEntries(t, f.scratch))
}

func TestConvert_DocumentSkippedWhenConverted(t *testing.T) {
	f := newFixture(t)
	ref := f.put(t, srcPrefix+"contrato.docx")
	f.put(t, destPrefix+"contrato.pdf")
	office := &fakeStrategy{name: "office"}

	o := f.convert(t, f.set(t, map[domain.FormatClass][]Strategy{domain.ClassDocument: {office}}), ref)
	require.False(t, o.OK())
	assert.Equal(t, domain.ReasonAlreadyConverted, o.Failure.Reason)
	assert.Zero(t, f.store.downloads.Load())
	assert.Zero(t, office.calls.Load())
}

func TestConvert_PresentationNotPrechecked(t *testing.T) {
	f := newFixture(t)
	ref := f.put(t, srcPrefix+"deck.pptx")
	f.put(t, destPrefix+"deck.pdf")

	o := f.convert(t, f.set(t, map[domain.FormatClass][]Strategy{domain.ClassPresentation: {&fakeStrategy{name: "office"}}}), ref)
	require.True(t, o.OK())
	assert.EqualValues(t, 1, f.store.downloads.Load())
}

func TestConvert_FallbackInOrder(t *testing.T) {
	f := newFixture(t)
	ref := f.put(t, srcPrefix+"planilha.xlsx")
	office := &fakeStrategy{name: "office", err: domain.NewFailure(domain.ReasonToolNotFound, errors.New("no soffice"))}
	tables := &fakeStrategy{name: "tables"}

	o := f.convert(t, f.set(t, map[domain.FormatClass][]Strategy{domain.ClassSpreadsheet: {office, tables}}), ref)
	require.True(t, o.OK())
	assert.EqualValues(t, 1, office.calls.Load())
	assert.EqualValues(t, 1, tables.calls.Load())

	assert.Equal(t, "planilha.pdf", o.Result.OutputName)
	assert.Equal(t, ref.Key, o.Result.SourceKey)
	assert.Equal(t, "demo", o.Result.Bucket)

	// Only the output is left in the item's working dir.
	assert.Equal(t, []string{"planilha.pdf"}, scratchEntries(t, filepath.Dir(o.Result.LocalPath)))
}

func TestConvert_AllStrategiesFail(t *testing.T) {
	f := newFixture(t)
	ref := f.put(t, srcPrefix+"planilha.xls")
	office := &fakeStrategy{name: "office", err: domain.NewFailure(domain.ReasonToolExit, errors.New("exit status 1"))}
	tables := &fakeStrategy{name: "tables", err: errors.New("corrupt workbook")}

	o := f.convert(t, f.set(t, map[domain.FormatClass][]Strategy{domain.ClassSpreadsheet: {office, tables}}), ref)
	require.False(t, o.OK())
	assert.Equal(t, domain.ReasonToolExit, o.Failure.Reason)
	assert.Contains(t, o.Failure.Error(), "corrupt workbook")
	assert.Empty(t, scratchEntries(t, f.scratch))
}

func TestConvert_PanicBecomesTransformFailure(t *testing.T) {
	f := newFixture(t)
	ref := f.put(t, srcPrefix+"foto.png")

	o := f.convert(t, f.set(t, map[domain.FormatClass][]Strategy{domain.ClassImage: {&fakeStrategy{name: "image", panic: true}}}), ref)
	require.False(t, o.OK())
	assert.Equal(t, domain.ReasonTransform, o.Failure.Reason)
	assert.ErrorIs(t, o.Failure, ErrStrategyPanic)
	assert.Empty(t, scratchEntries(t, f.scratch))
}

func TestConvert_DownloadFailure(t *testing.T) {
	f := newFixture(t)
	ref, ok := domain.NewSourceFileRef("file", "demo", srcPrefix+"sumiu.rtf")
	require.True(t, ok)

	o := f.convert(t, f.set(t, map[domain.FormatClass][]Strategy{domain.ClassRichText: {&fakeStrategy{name: "office"}}}), ref)
	require.False(t, o.OK())
	assert.Equal(t, domain.ReasonDownload, o.Failure.Reason)
	assert.Empty(t, scratchEntries(t, f.scratch))
}

func TestConvert_SameBasenameDistinctWorkDirs(t *testing.T) {
	f := newFixture(t)
	a := f.put(t, srcPrefix+"x/a.docx")
	b := f.put(t, srcPrefix+"y/a.docx")
	set := f.set(t, map[domain.FormatClass][]Strategy{domain.ClassDocument: {&fakeStrategy{name: "office"}}})

	oa := f.convert(t, set, a)
	ob := f.convert(t, set, b)
	require.True(t, oa.OK())
	require.True(t, ob.OK())
	assert.NotEqual(t, oa.Result.LocalPath, ob.Result.LocalPath)
	assert.FileExists(t, oa.Result.LocalPath)
	assert.FileExists(t, ob.Result.LocalPath)
}

func TestSet_ConvertLocalKeepsExistingOutput(t *testing.T) {
	f := newFixture(t)
	failing := f.set(t, map[domain.FormatClass][]Strategy{
		domain.ClassRichText: {&fakeStrategy{name: "office", err: domain.NewFailure(domain.ReasonToolExit, errors.New("exit 1"))}},
	})

	dir := t.TempDir()
	in := filepath.Join(dir, "memo.rtf")
	require.NoError(t, os.WriteFile(in, []byte("{\\rtf1}"), 0o644))
	existing := filepath.Join(dir, "memo.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("previous pdf"), 0o644))

	_, err := failing.ConvertLocal(context.Background(), in, dir)
	require.Error(t, err)
	assert.Equal(t, domain.ReasonToolExit, domain.ReasonOf(err))

	body, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "previous pdf", string(body))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "staging dir must be removed")

	working := f.set(t, map[domain.FormatClass][]Strategy{domain.ClassRichText: {&fakeStrategy{name: "office"}}})
	out, err := working.ConvertLocal(context.Background(), in, dir)
	require.NoError(t, err)
	assert.Equal(t, existing, out)

	body, err = os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
}

func TestSet_ConvertLocal(t *testing.T) {
	f := newFixture(t)
	set := f.set(t, map[domain.FormatClass][]Strategy{domain.ClassRichText: {&fakeStrategy{name: "office"}}})

	dir := t.TempDir()
	in := filepath.Join(dir, "memo.rtf")
	require.NoError(t, os.WriteFile(in, []byte("{\\rtf1}"), 0o644))

	out, err := set.ConvertLocal(context.Background(), in, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "memo.pdf"), out)

	_, err = set.ConvertLocal(context.Background(), filepath.Join(dir, "notes.txt"), dir)
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = set.ConvertLocal(context.Background(), filepath.Join(dir, ".rtf"), dir)
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = set.ConvertLocal(context.Background(), filepath.Join(dir, "x.db"), dir)
	assert.Equal(t, domain.ReasonUnsupported, domain.ReasonOf(err))
}
