package audit

// Session accumulates the ordered results of a single audit run.
type Session struct {
	results []Result
}

// NewSession constructs an empty Session.
func NewSession() *Session {
	return &Session{}
}

// Record appends a result. Duplicate check labels are kept and scored cumulatively.
func (session *Session) Record(result Result) {
	if session == nil {
		return
	}
	session.results = append(session.results, result)
}

// Add constructs and records a result in one step.
func (session *Session) Add(category string, check string, passed bool, message string, severity Severity) {
	session.Record(NewResult(category, check, passed, message, severity))
}

// Results returns a copy of the recorded results in recording order.
func (session *Session) Results() []Result {
	if session == nil {
		return nil
	}
	return append([]Result{}, session.results...)
}

// Len reports the number of recorded results.
func (session *Session) Len() int {
	if session == nil {
		return 0
	}
	return len(session.results)
}
