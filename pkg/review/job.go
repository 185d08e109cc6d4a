package review

import "time"

// Kind distinguishes what a Job reviews.
type Kind string

const (
	KindCommit       Kind = "commit"
	KindMergeRequest Kind = "merge_request"
)

// Trigger distinguishes how a Job was produced.
type Trigger string

const (
	TriggerWebhook      Trigger = "webhook"
	TriggerManual       Trigger = "manual"
	TriggerUploadedDiff Trigger = "uploaded_diff"
)

// Job is the normalised, in-memory unit of work Ingress hands to the
// Engine. Exactly one of CommitID/MRID is set unless Trigger is
// TriggerUploadedDiff, in which case SuppliedDiff is set and neither
// identifier is required.
type Job struct {
	Kind         Kind
	Trigger      Trigger
	ProjectKey   string
	RepoSlug     string
	CommitID     string
	MRID         int64
	AuthorName   string
	AuthorEmail  string
	SuppliedDiff string
	ReceivedAt   time.Time
	RequestID    string

	// RequestPayload is a structured snapshot of the inbound request,
	// retained only for use in a FailureLog if the run fails.
	RequestPayload string
}

func (j Job) reviewType() string {
	if j.Trigger == TriggerManual || j.Trigger == TriggerUploadedDiff {
		return "manual"
	}
	return "auto"
}

func (j Job) triggerType() string {
	if j.MRID != 0 {
		return "pull_request"
	}
	return "commit"
}

func (j Job) eventType() string {
	if j.Trigger == TriggerWebhook {
		return "webhook"
	}
	return "manual"
}
