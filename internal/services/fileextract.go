package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"slidecraft-backend/internal/models"
)

const docxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// documentTypes maps accepted reference document extensions to the media
// type sent upstream.
var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": docxMimeType,
	".txt":  "text/plain",
}

// FileExtractService turns uploaded files into attachments the generator accepts.
type FileExtractService struct {
	log *zap.SugaredLogger
}

func NewFileExtractService(log *zap.SugaredLogger) *FileExtractService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FileExtractService{log: log}
}

// PrepareDocument validates a reference document and converts it into the
// attachment sent with the outline request. DOCX files are reduced to their
// text since inline Word payloads are rejected upstream.
func (s *FileExtractService) PrepareDocument(filename string, data []byte) (*models.AttachedFile, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mimeType, ok := documentTypes[ext]
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"file": "仅支持 PDF、Word 或 TXT 文档"}}
	}
	if len(data) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"file": "文档内容为空"}}
	}

	sniffed := http.DetectContentType(data[:min(len(data), 512)])
	if !isAllowedMimeType(sniffed, filename) {
		return nil, &ValidationError{Fields: map[string]string{"file": "File type not supported"}}
	}

	file := &models.AttachedFile{Name: filename, MimeType: mimeType, Data: data}

	switch ext {
	case ".pdf":
		file.Pages = s.countPDFPages(data)
	case ".docx":
		text, err := extractDOCX(data)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"file": "无法读取 Word 文档内容"}}
		}
		file.MimeType = "text/plain"
		file.Data = []byte(text)
	case ".txt":
		text := normalizeExtractedText(string(data))
		if text == "" {
			return nil, &ValidationError{Fields: map[string]string{"file": "文档内容为空"}}
		}
		file.Data = []byte(text)
	}

	return file, nil
}

// PrepareImage validates an image submitted for analysis and reports its
// media type.
func (s *FileExtractService) PrepareImage(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Fields: map[string]string{"file": "Image is empty"}}
	}
	mimeType := http.DetectContentType(data[:min(len(data), 512)])
	if !strings.HasPrefix(mimeType, "image/") {
		return "", &ValidationError{Fields: map[string]string{"file": "请上传图片文件"}}
	}
	return mimeType, nil
}

// countPDFPages returns 0 when the PDF cannot be parsed; the bytes are still
// attached and left to the service to read.
func (s *FileExtractService) countPDFPages(data []byte) (pages int) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			s.log.Warnw("Could not read PDF attachment", "panic", r)
			pages = 0
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.log.Warnw("Could not read PDF attachment", "error", err)
		return 0
	}
	return reader.NumPage()
}

func isAllowedMimeType(mime, filename string) bool {
	allowed := map[string]bool{
		"application/pdf":          true,
		"text/plain":               true,
		"application/zip":          true,
		"application/octet-stream": true,
	}
	if allowed[mime] || strings.HasPrefix(mime, "text/plain") {
		return true
	}
	// Check by extension as fallback
	_, ok := documentTypes[strings.ToLower(filepath.Ext(filename))]
	return ok && !strings.HasPrefix(mime, "image/")
}

func extractDOCX(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var documentXML []byte
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		break
	}

	if len(documentXML) == 0 {
		return "", fmt.Errorf("docx document.xml not found")
	}

	text := normalizeExtractedText(stripDOCXML(documentXML))
	if text == "" {
		return "", fmt.Errorf("no extractable text found in docx")
	}

	return text, nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripDOCXML(src []byte) string {
	s := string(src)

	// DOCX paragraphs and line breaks
	s = strings.ReplaceAll(s, "</w:p>", "\n")
	s = strings.ReplaceAll(s, "<w:br/>", "\n")
	s = strings.ReplaceAll(s, "<w:br />", "\n")
	s = strings.ReplaceAll(s, "<w:tab/>", "\t")

	s = xmlTagPattern.ReplaceAllString(s, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
