package domain

// TradeJournal defines the audit log the sequencer writes through. The
// engine core never touches it; a nil journal disables persistence.
type TradeJournal interface {
	SaveSubmission(rec *SubmissionRecord) error
	SaveResult(res *MatchResult) error
	Submissions() ([]SubmissionRecord, error)
}
