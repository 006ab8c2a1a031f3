package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"doc-converter/internal/domain"
	"doc-converter/internal/repository/document/local"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

type fakeProducer struct {
	mu    sync.Mutex
	tasks []domain.ConversionTask
	err   error
}

func (f *fakeProducer) PublishTask(_ context.Context, task domain.ConversionTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeRunner struct {
	started chan string
	release chan struct{}
}

func (f *fakeRunner) RunWithID(ctx context.Context, runID string) (domain.RunSummary, error) {
	f.started <- runID
	select {
	case <-f.release:
	case <-ctx.Done():
		return domain.RunSummary{RunID: runID}, ctx.Err()
	}
	return domain.RunSummary{RunID: runID, Uploaded: 1}, nil
}

type fakeLedger struct {
	records []domain.ConversionRecord
}

func (f *fakeLedger) List(_ context.Context, limit, offset int) ([]domain.ConversionRecord, error) {
	if offset >= len(f.records) {
		return nil, nil
	}
	end := min(offset+limit, len(f.records))
	return f.records[offset:end], nil
}

func (f *fakeLedger) Count(context.Context) (int, error) {
	return len(f.records), nil
}

func newUsecase(t *testing.T, runner batchRunner) (*DocumentUsecase, string) {
	t.Helper()
	zlog.Init()

	root := t.TempDir()
	store, err := local.NewLocalRepository(root, "demo")
	require.NoError(t, err)

	uc := NewDocumentUsecase(context.Background(), store, runner, Options{
		SourcePrefix:      "Arquivos Docx/",
		DestinationPrefix: "Arquivos Pdf/",
		MaxUploadSize:     1 << 10,
	}, &zlog.Logger)
	return uc, root
}

func TestUpload(t *testing.T) {
	uc, root := newUsecase(t, nil)

	up, err := uc.Upload(context.Background(), "Relatorio Final 2024.DOCX", strings.NewReader("docx"), 4, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "Arquivos Docx/relatorio_final_2024.DOCX", up.Key)
	assert.Empty(t, up.TaskID)

	body, err := os.ReadFile(filepath.Join(root, "Arquivos Docx", "relatorio_final_2024.DOCX"))
	require.NoError(t, err)
	assert.Equal(t, "docx", string(body))
}

func TestUpload_Rejects(t *testing.T) {
	uc, _ := newUsecase(t, nil)

	tests := []struct {
		name     string
		filename string
		size     int64
		want     error
	}{
		{name: "unknown extension", filename: "notes.txt", size: 1, want: ErrUnsupportedFormat},
		{name: "no extension", filename: "README", size: 1, want: ErrUnsupportedFormat},
		{name: "empty stem", filename: "!!!.docx", size: 1, want: ErrInvalidFileName},
		{name: "too large", filename: "big.pptx", size: 4 << 10, want: ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Upload(context.Background(), tt.filename, strings.NewReader("x"), tt.size, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpload_EnqueuesTask(t *testing.T) {
	uc, _ := newUsecase(t, nil)
	producer := &fakeProducer{}
	uc.WithProducer(producer)

	up, err := uc.Upload(context.Background(), "memo.rtf", strings.NewReader("{\\rtf1}"), 7, "")
	require.NoError(t, err)

	require.Len(t, producer.tasks, 1)
	assert.Equal(t, up.TaskID, producer.tasks[0].ID)
	assert.Equal(t, "Arquivos Docx/memo.rtf", producer.tasks[0].SourceKey)
}

func TestUpload_EnqueueFailureRemovesObject(t *testing.T) {
	uc, root := newUsecase(t, nil)
	uc.WithProducer(&fakeProducer{err: errors.New("broker down")})

	_, err := uc.Upload(context.Background(), "memo.rtf", strings.NewReader("{\\rtf1}"), 7, "")
	require.ErrorIs(t, err, ErrMessageQueueError)

	_, statErr := os.Stat(filepath.Join(root, "Arquivos Docx", "memo.rtf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTriggerRun(t *testing.T) {
	runner := &fakeRunner{started: make(chan string, 1), release: make(chan struct{})}
	uc, _ := newUsecase(t, runner)

	runID, err := uc.TriggerRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.Equal(t, runID, <-runner.started)

	_, err = uc.TriggerRun(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(runner.release)
	uc.Wait()

	second, err := uc.TriggerRun(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, runID, second)
	<-runner.started
	uc.Wait()
}

func TestSignedURL(t *testing.T) {
	uc, root := newUsecase(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Arquivos Pdf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Arquivos Pdf", "contrato.pdf"), []byte("%PDF"), 0o644))

	url, err := uc.SignedURL(context.Background(), "contrato.docx", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.Contains(t, url, "Arquivos%20Pdf/contrato.pdf")
	assert.Contains(t, url, "expires=")

	_, err = uc.SignedURL(context.Background(), "ausente.docx", time.Minute)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestListConversions(t *testing.T) {
	uc, _ := newUsecase(t, nil)

	_, _, err := uc.ListConversions(context.Background(), 10, 0)
	require.ErrorIs(t, err, ErrLedgerDisabled)

	uc.WithLedger(&fakeLedger{records: []domain.ConversionRecord{
		{ID: "1", SourceKey: "a.docx"},
		{ID: "2", SourceKey: "b.jpg"},
		{ID: "3", SourceKey: "c.db"},
	}})

	records, total, err := uc.ListConversions(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[0].ID)
}
