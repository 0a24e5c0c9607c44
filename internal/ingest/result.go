package ingest

// Issue is a per-record error or warning in an import result.
type Issue struct {
	RecordID string `json:"record_id"`
	Message  string `json:"message"`
}

// Result summarizes one import call. It is built incrementally during the
// import and immutable once the import completes.
type Result struct {
	Total        int     `json:"total"`         // records seen by the parser
	Successful   int     `json:"successful"`    // rows written
	Failed       int     `json:"failed"`        // rows with an unrecoverable error
	SkippedLines int     `json:"skipped_lines"` // malformed lines dropped by the parser
	Errors       []Issue `json:"errors"`
	Warnings     []Issue `json:"warnings"`
}

func (r *Result) addError(recordID, message string) {
	r.Failed++
	r.Errors = append(r.Errors, Issue{RecordID: recordID, Message: message})
}

// addWarning records a non-fatal condition (e.g. a skipped duplicate).
// Warnings count toward neither Successful nor Failed.
func (r *Result) addWarning(recordID, message string) {
	r.Warnings = append(r.Warnings, Issue{RecordID: recordID, Message: message})
}
