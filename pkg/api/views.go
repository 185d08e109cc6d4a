package api

import "github.com/acme/codereviewd/pkg/store"

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func toReviewView(r store.ReviewRecord) reviewRecordView {
	return reviewRecordView{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt.Format(timeLayout),
		ReviewType:     r.ReviewType,
		TriggerType:    r.TriggerType,
		ProjectKey:     r.ProjectKey,
		RepoSlug:       r.RepoSlug,
		CommitID:       r.CommitID,
		MRID:           r.MRID,
		AuthorName:     r.AuthorName,
		AuthorEmail:    r.AuthorEmail,
		DiffContent:    r.DiffContent,
		ReviewFeedback: r.ReviewFeedback,
		EmailTo:        r.EmailTo,
		EmailCc:        r.EmailCc,
		EmailSent:      r.EmailSent,
		LLMProvider:    r.LLMProvider,
		LLMModel:       r.LLMModel,
	}
}

func toReviewViews(rs []store.ReviewRecord) []reviewRecordView {
	out := make([]reviewRecordView, len(rs))
	for i, r := range rs {
		out[i] = toReviewView(r)
	}
	return out
}

func toFailureView(f store.FailureLog) failureLogView {
	return failureLogView{
		ID:              f.ID,
		CreatedAt:       f.CreatedAt.Format(timeLayout),
		EventType:       f.EventType,
		EventKey:        f.EventKey,
		ProjectKey:      f.ProjectKey,
		RepoSlug:        f.RepoSlug,
		CommitID:        f.CommitID,
		MRID:            f.MRID,
		FailureStage:    f.FailureStage,
		ErrorType:       f.ErrorType,
		ErrorMessage:    f.ErrorMessage,
		RetryCount:      f.RetryCount,
		Resolved:        f.Resolved,
		ResolutionNotes: f.ResolutionNotes,
	}
}

func toFailureViews(fs []store.FailureLog) []failureLogView {
	out := make([]failureLogView, len(fs))
	for i, f := range fs {
		out[i] = toFailureView(f)
	}
	return out
}
