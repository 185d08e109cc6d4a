package webhook

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/acme/codereviewd/pkg/review"
)

const (
	eventMROpened         = "mr-opened"
	eventMRSourceUpdated  = "mr-source-updated"
	eventRepoRefsChanged  = "repo:refs_changed"
)

// ErrMissingRepository is returned when an mr-* event lacks the nested
// pullRequest.toRef.repository object, or a push event lacks the top-level
// repository object, that the Engine needs to identify project/repo.
var ErrMissingRepository = errors.New("webhook: target repository missing")

type envelope struct {
	EventKey string `json:"eventKey"`
}

type mrEvent struct {
	EventKey    string `json:"eventKey"`
	PullRequest struct {
		ID    int64 `json:"id"`
		ToRef struct {
			Repository *struct {
				Project struct {
					Key string `json:"key"`
				} `json:"project"`
				Slug string `json:"slug"`
			} `json:"repository"`
		} `json:"toRef"`
		Author struct {
			User struct {
				DisplayName  string `json:"displayName"`
				EmailAddress string `json:"emailAddress"`
			} `json:"user"`
		} `json:"author"`
	} `json:"pullRequest"`
}

type pushEvent struct {
	EventKey   string `json:"eventKey"`
	Repository struct {
		Project struct {
			Key string `json:"key"`
		} `json:"project"`
		Slug string `json:"slug"`
	} `json:"repository"`
	Changes []struct {
		ToHash string `json:"toHash"`
	} `json:"changes"`
	Actor struct {
		DisplayName  string `json:"displayName"`
		EmailAddress string `json:"emailAddress"`
	} `json:"actor"`
}

// ParseResult is the outcome of parsing one webhook delivery: zero or more
// Jobs (a push event with N commits produces N Jobs), or Handled=true with
// no Jobs when the event is recognised-but-inert (any other eventKey).
type ParseResult struct {
	Jobs    []review.Job
	Handled bool
}

// Parse normalises a webhook body into Jobs. It is a pure function of the
// bytes: identical input always produces identical output.
func Parse(body []byte, receivedAt time.Time, requestID string) (ParseResult, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ParseResult{}, err
	}

	switch env.EventKey {
	case eventMROpened, eventMRSourceUpdated:
		return parseMR(body, receivedAt, requestID)
	case eventRepoRefsChanged:
		return parsePush(body, receivedAt, requestID)
	default:
		return ParseResult{Handled: true}, nil
	}
}

func parseMR(body []byte, receivedAt time.Time, requestID string) (ParseResult, error) {
	var ev mrEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ParseResult{}, err
	}
	repo := ev.PullRequest.ToRef.Repository
	if repo == nil || repo.Project.Key == "" || repo.Slug == "" {
		return ParseResult{}, ErrMissingRepository
	}

	job := review.Job{
		Kind:           review.KindMergeRequest,
		Trigger:        review.TriggerWebhook,
		ProjectKey:     repo.Project.Key,
		RepoSlug:       repo.Slug,
		MRID:           ev.PullRequest.ID,
		AuthorName:     ev.PullRequest.Author.User.DisplayName,
		AuthorEmail:    ev.PullRequest.Author.User.EmailAddress,
		ReceivedAt:     receivedAt,
		RequestID:      requestID,
		RequestPayload: string(body),
	}
	return ParseResult{Jobs: []review.Job{job}, Handled: true}, nil
}

func parsePush(body []byte, receivedAt time.Time, requestID string) (ParseResult, error) {
	var ev pushEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ParseResult{}, err
	}
	if ev.Repository.Project.Key == "" || ev.Repository.Slug == "" {
		return ParseResult{}, ErrMissingRepository
	}

	jobs := make([]review.Job, 0, len(ev.Changes))
	for _, c := range ev.Changes {
		if c.ToHash == "" {
			continue
		}
		jobs = append(jobs, review.Job{
			Kind:           review.KindCommit,
			Trigger:        review.TriggerWebhook,
			ProjectKey:     ev.Repository.Project.Key,
			RepoSlug:       ev.Repository.Slug,
			CommitID:       c.ToHash,
			AuthorName:     ev.Actor.DisplayName,
			AuthorEmail:    ev.Actor.EmailAddress,
			ReceivedAt:     receivedAt,
			RequestID:      requestID,
			RequestPayload: string(body),
		})
	}
	return ParseResult{Jobs: jobs, Handled: true}, nil
}
