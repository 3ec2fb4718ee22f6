package docpipe

// Format identifies a document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatTXT  Format = "txt"
)

// PageSpan maps a page number to the rune range it covers in Document.Text.
// End is exclusive. Single-page formats produce one span over the whole text.
type PageSpan struct {
	Page  int `json:"page"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Document is the result of extracting text from a file.
type Document struct {
	Format Format     `json:"format"`
	Title  string     `json:"title"`
	Text   string     `json:"text"`
	Pages  []PageSpan `json:"pages"`
}
