package api

// errorResponse is the structured JSON body for failed synchronous
// requests: {error: kind, message: string}.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// manualReviewRequest is the body of POST /manual-review.
type manualReviewRequest struct {
	ProjectKey string `json:"project_key" binding:"required"`
	RepoSlug   string `json:"repo_slug" binding:"required"`
	CommitID   string `json:"commit_id"`
	MRID       int64  `json:"mr_id"`
}

// reviewResponse is returned by the synchronous endpoints on success.
type reviewResponse struct {
	ID             int64  `json:"id"`
	ReviewFeedback string `json:"review_feedback"`
	EmailSent      bool   `json:"email_sent"`
}

// noDiffResponse is returned when a synchronous run resolves an empty
// change set — 200, not an error.
type noDiffResponse struct {
	Status string `json:"status"`
}

// reviewRecordView and failureLogView are the JSON projections of
// store.ReviewRecord / store.FailureLog returned by the query surface.
type reviewRecordView struct {
	ID             int64    `json:"id"`
	CreatedAt      string   `json:"created_at"`
	ReviewType     string   `json:"review_type"`
	TriggerType    string   `json:"trigger_type"`
	ProjectKey     string   `json:"project_key"`
	RepoSlug       string   `json:"repo_slug"`
	CommitID       string   `json:"commit_id,omitempty"`
	MRID           int64    `json:"mr_id,omitempty"`
	AuthorName     string   `json:"author_name,omitempty"`
	AuthorEmail    string   `json:"author_email,omitempty"`
	DiffContent    string   `json:"diff_content"`
	ReviewFeedback string   `json:"review_feedback"`
	EmailTo        []string `json:"email_to,omitempty"`
	EmailCc        []string `json:"email_cc,omitempty"`
	EmailSent      bool     `json:"email_sent"`
	LLMProvider    string   `json:"llm_provider"`
	LLMModel       string   `json:"llm_model"`
}

type failureLogView struct {
	ID              int64  `json:"id"`
	CreatedAt       string `json:"created_at"`
	EventType       string `json:"event_type"`
	EventKey        string `json:"event_key,omitempty"`
	ProjectKey      string `json:"project_key,omitempty"`
	RepoSlug        string `json:"repo_slug,omitempty"`
	CommitID        string `json:"commit_id,omitempty"`
	MRID            int64  `json:"mr_id,omitempty"`
	FailureStage    string `json:"failure_stage"`
	ErrorType       string `json:"error_type"`
	ErrorMessage    string `json:"error_message"`
	RetryCount      int    `json:"retry_count"`
	Resolved        bool   `json:"resolved"`
	ResolutionNotes string `json:"resolution_notes,omitempty"`
}

type pageView[T any] struct {
	Total int64 `json:"total"`
	Rows  []T   `json:"rows"`
}
