package protocol

import "strings"

// UploadedFile references a user-uploaded file included in the prompt.
// Name is non-empty and Content is length-bounded; both guarantees are owned
// by the file store that produced the reference.
type UploadedFile struct {
	Name    string
	Content string
}

// FileContextTag marks the uploaded-files block in a compiled prompt.
const FileContextTag = "<uploaded_files>"

// RenderFileContext renders file references as a tagged block, one entry per
// file in input order. No reordering, no deduplication, no truncation.
// Returns the empty string for an empty slice; the compiler uses that to omit
// the section entirely.
func RenderFileContext(files []UploadedFile) string {
	if len(files) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(FileContextTag)
	b.WriteByte('\n')
	for _, f := range files {
		b.WriteString(`<file name="`)
		b.WriteString(f.Name)
		b.WriteString("\">\n")
		b.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("</file>\n")
	}
	b.WriteString("</uploaded_files>")
	return b.String()
}
