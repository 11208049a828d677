package excel

// ReaderConfig names the columns the experiment reader looks for. Header
// matching is case-insensitive.
type ReaderConfig struct {
	Sheet         string `json:"sheet"` // empty means the first sheet
	GroupColumn   string `json:"group_column"`
	SizeColumn    string `json:"size_column"`
	SuccessColumn string `json:"success_column"`
	MeanColumn    string `json:"mean_column"`
	StdDevColumn  string `json:"std_dev_column"`
	ValueColumn   string `json:"value_column"` // raw per-unit observations
}

// DefaultReaderConfig returns the default column names
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		GroupColumn:   "group",
		SizeColumn:    "sample_size",
		SuccessColumn: "success_count",
		MeanColumn:    "mean",
		StdDevColumn:  "std_dev",
		ValueColumn:   "value",
	}
}
