package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// SourceFileRef identifies one object discovered under the source prefix.
type SourceFileRef struct {
	FullPath string
	Key      string
	Name     string
	Ext      string
}

// NewSourceFileRef builds a ref from a bucket-relative key. ok is false for
// directory markers and keys without a basename.
func NewSourceFileRef(scheme, bucket, key string) (SourceFileRef, bool) {
	if key == "" || strings.HasSuffix(key, "/") {
		return SourceFileRef{}, false
	}
	name := path.Base(key)
	if name == "" || name == "." || name == "/" {
		return SourceFileRef{}, false
	}
	_, ext := SplitExt(name)
	return SourceFileRef{
		FullPath: fmt.Sprintf("%s://%s/%s", scheme, bucket, key),
		Key:      key,
		Name:     name,
		Ext:      strings.ToLower(ext),
	}, true
}

// SplitExt splits name into stem and extension. Leading dots belong to the
// stem, so ".docx" has no extension.
func SplitExt(name string) (stem, ext string) {
	ext = path.Ext(strings.TrimLeft(name, "."))
	return strings.TrimSuffix(name, ext), ext
}

// Stem is the file name without its extension.
func (r SourceFileRef) Stem() string {
	stem, _ := SplitExt(r.Name)
	return stem
}

// OutputName is the name of the PDF produced for this ref.
func (r SourceFileRef) OutputName() string {
	return r.Stem() + PDFExt
}

// DestinationKey is where the converted PDF of ref lands.
func DestinationKey(destPrefix string, outputName string) string {
	return path.Join(destPrefix, outputName)
}

// ConversionResult is a locally produced PDF waiting for upload.
type ConversionResult struct {
	LocalPath  string
	SourceKey  string
	OutputName string
	Bucket     string
}

// ObjectInfo is a listing entry returned by the object store.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type FormatClass string

const (
	ClassDocument     FormatClass = "document"
	ClassImage        FormatClass = "image"
	ClassSpreadsheet  FormatClass = "spreadsheet"
	ClassDatabase     FormatClass = "database"
	ClassMail         FormatClass = "mail"
	ClassRichText     FormatClass = "richtext"
	ClassPresentation FormatClass = "presentation"
)

// FormatClasses lists every class in stage order.
var FormatClasses = []FormatClass{
	ClassDocument,
	ClassImage,
	ClassSpreadsheet,
	ClassDatabase,
	ClassMail,
	ClassRichText,
	ClassPresentation,
}

var extensionClasses = map[string]FormatClass{
	".doc":  ClassDocument,
	".dotx": ClassDocument,
	".docx": ClassDocument,
	".jpg":  ClassImage,
	".png":  ClassImage,
	".xls":  ClassSpreadsheet,
	".xlsx": ClassSpreadsheet,
	".db":   ClassDatabase,
	".msg":  ClassMail,
	".rtf":  ClassRichText,
	".ppt":  ClassPresentation,
	".pptx": ClassPresentation,
}

// ClassOf maps a lower-cased extension (with leading dot) to its class.
func ClassOf(ext string) (FormatClass, bool) {
	c, ok := extensionClasses[strings.ToLower(ext)]
	return c, ok
}

// Extensions returns the extensions bound to class.
func (c FormatClass) Extensions() []string {
	var exts []string
	for ext, class := range extensionClasses {
		if class == c {
			exts = append(exts, ext)
		}
	}
	return exts
}

type ConversionStatus string

const (
	StatusConverted   ConversionStatus = "converted"
	StatusFailed      ConversionStatus = "failed"
	StatusSkipped     ConversionStatus = "skipped"
	StatusUnsupported ConversionStatus = "unsupported"
)

// ConversionRecord is one ledger row describing an item outcome.
type ConversionRecord struct {
	ID             string
	RunID          string
	SourceKey      string
	Class          FormatClass
	Status         ConversionStatus
	Reason         string
	DestinationKey string
	CreatedAt      time.Time
}

const (
	PDFExt         = ".pdf"
	PDFContentType = "application/pdf"
)
