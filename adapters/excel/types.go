package excel

// RawRowData represents a row of raw sheet data keyed by lower-cased header
type RawRowData map[string]string

// ExcelData represents the complete sheet contents
type ExcelData struct {
	Headers []string     // Column headers, lower-cased and trimmed
	Rows    []RawRowData // Data rows
}

// HasColumn reports whether a header is present
func (d *ExcelData) HasColumn(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}
