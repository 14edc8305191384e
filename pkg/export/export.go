package export

import "fmt"

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for "csv" or "pdf".
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "", "csv":
		return NewCSVExporter(), nil
	case "pdf":
		return NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
