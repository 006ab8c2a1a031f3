package domain

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSourceFileRef(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
		want SourceFileRef
	}{
		{
			name: "nested document",
			key:  "Arquivos Docx/2024/Contrato Final.DOCX",
			ok:   true,
			want: SourceFileRef{
				FullPath: "gs://bucket/Arquivos Docx/2024/Contrato Final.DOCX",
				Key:      "Arquivos Docx/2024/Contrato Final.DOCX",
				Name:     "Contrato Final.DOCX",
				Ext:      ".docx",
			},
		},
		{name: "directory marker", key: "Arquivos Docx/2024/", ok: false},
		{name: "empty key", key: "", ok: false},
		{
			name: "no extension",
			key:  "in/README",
			ok:   true,
			want: SourceFileRef{FullPath: "gs://bucket/in/README", Key: "in/README", Name: "README", Ext: ""},
		},
		{
			name: "dot file",
			key:  "in/.docx",
			ok:   true,
			want: SourceFileRef{FullPath: "gs://bucket/in/.docx", Key: "in/.docx", Name: ".docx", Ext: ""},
		},
		{
			name: "dot file with extension",
			key:  "in/.rascunho.DOCX",
			ok:   true,
			want: SourceFileRef{FullPath: "gs://bucket/in/.rascunho.DOCX", Key: "in/.rascunho.DOCX", Name: ".rascunho.DOCX", Ext: ".docx"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := NewSourceFileRef("gs", "bucket", tt.key)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, ref)
			}
		})
	}
}

func TestSourceFileRef_OutputName(t *testing.T) {
	ref, ok := NewSourceFileRef("s3", "b", "in/report.v2.xlsx")
	require.True(t, ok)

	assert.Equal(t, "report.v2", ref.Stem())
	assert.Equal(t, "report.v2.pdf", ref.OutputName())
	assert.Equal(t, "Arquivos Pdf/report.v2.pdf", DestinationKey("Arquivos Pdf/", ref.OutputName()))
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name, stem, ext string
	}{
		{"report.v2.xlsx", "report.v2", ".xlsx"},
		{".docx", ".docx", ""},
		{"..docx", "..docx", ""},
		{".a.docx", ".a", ".docx"},
		{"README", "README", ""},
		{"x.", "x", "."},
	}
	for _, tt := range tests {
		stem, ext := SplitExt(tt.name)
		assert.Equal(t, tt.stem, stem, tt.name)
		assert.Equal(t, tt.ext, ext, tt.name)
	}

	ref, ok := NewSourceFileRef("s3", "b", "in/.docx")
	require.True(t, ok)
	assert.Equal(t, ".docx.pdf", ref.OutputName())
}

func TestClassOf(t *testing.T) {
	known := map[string]FormatClass{
		".doc": ClassDocument, ".dotx": ClassDocument, ".docx": ClassDocument,
		".jpg": ClassImage, ".png": ClassImage,
		".xls": ClassSpreadsheet, ".xlsx": ClassSpreadsheet,
		".db":  ClassDatabase,
		".msg": ClassMail,
		".rtf": ClassRichText,
		".ppt": ClassPresentation, ".pptx": ClassPresentation,
	}
	for ext, want := range known {
		got, ok := ClassOf(ext)
		assert.True(t, ok, ext)
		assert.Equal(t, want, got, ext)
	}

	for _, ext := range []string{".jpeg", ".pdf", ".txt", ""} {
		_, ok := ClassOf(ext)
		assert.False(t, ok, ext)
	}
}

func TestFormatClass_Extensions(t *testing.T) {
	exts := ClassPresentation.Extensions()
	sort.Strings(exts)
	assert.Equal(t, []string{".ppt", ".pptx"}, exts)
	assert.Len(t, FormatClasses, 7)
}

func TestOutcome(t *testing.T) {
	ok := Succeeded(ConversionResult{OutputName: "a.pdf"})
	assert.True(t, ok.OK())
	assert.Equal(t, StatusConverted, ok.Status())

	failed := Failed(ReasonToolExit, errors.New("exit status 1"))
	assert.False(t, failed.OK())
	assert.Equal(t, StatusFailed, failed.Status())
	assert.Equal(t, "tool_exit: exit status 1", failed.Failure.Error())

	assert.Equal(t, StatusSkipped, Failed(ReasonAlreadyConverted, nil).Status())
	assert.Equal(t, StatusUnsupported, Failed(ReasonUnsupported, nil).Status())
}

func TestFailedWith_KeepsReason(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), NewFailure(ReasonToolTimeout, errors.New("deadline")))

	o := FailedWith(wrapped)
	assert.Equal(t, ReasonToolTimeout, o.Failure.Reason)
	assert.Equal(t, ReasonToolTimeout, ReasonOf(wrapped))

	assert.Equal(t, ReasonTransform, FailedWith(errors.New("boom")).Failure.Reason)
}

func TestNormalizeFileName(t *testing.T) {
	tests := map[string]string{
		"Relatório Final 2024.docx": "relatrio_final_2024.docx",
		"plain.pdf":                 "plain.pdf",
		"Some-File (copy).XLSX":     "somefile_copy.XLSX",
		"no extension":              "no_extension",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeFileName(in), in)
	}
}
