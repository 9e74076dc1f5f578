package github

// User is the subset of a GitHub account used by the tools
type User struct {
	Login string `json:"login"`
}

// Ref is a branch pointer on a pull request
type Ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// PullRequest is a pull request as returned by the REST API
type PullRequest struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	User      *User  `json:"user"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	HTMLURL   string `json:"html_url"`
	Head      Ref    `json:"head"`
	Base      Ref    `json:"base"`
	Mergeable *bool  `json:"mergeable"` // only on single-PR responses
	Merged    *bool  `json:"merged"`    // only on single-PR responses
}

// PullFile is a file changed by a pull request
type PullFile struct {
	Filename  string  `json:"filename"`
	Status    string  `json:"status"`
	Additions int     `json:"additions"`
	Deletions int     `json:"deletions"`
	Changes   int     `json:"changes"`
	BlobURL   string  `json:"blob_url"`
	Patch     *string `json:"patch"` // absent for binary or very large diffs
}

// Review is a pull request review
type Review struct {
	ID          int64   `json:"id"`
	User        *User   `json:"user"`
	State       string  `json:"state"`
	Body        string  `json:"body"`
	SubmittedAt *string `json:"submitted_at"` // absent while pending
	HTMLURL     string  `json:"html_url"`
}

// IssueComment is a comment on an issue or pull request conversation
type IssueComment struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
}

// APIError is the error body GitHub returns with 4xx/5xx statuses
type APIError struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}

// PullRequestSummary is the tool output for one pull request
type PullRequestSummary struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	User      string `json:"user"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	HTMLURL   string `json:"html_url"`
	Head      Ref    `json:"head"`
	Base      Ref    `json:"base"`
	Mergeable *bool  `json:"mergeable,omitempty"`
	Merged    *bool  `json:"merged,omitempty"`
}

// FileSummary is the tool output for one changed file
type FileSummary struct {
	Filename  string  `json:"filename"`
	Status    string  `json:"status"`
	Additions int     `json:"additions"`
	Deletions int     `json:"deletions"`
	Changes   int     `json:"changes"`
	BlobURL   string  `json:"blob_url"`
	Patch     *string `json:"patch,omitempty"`
}

// ReviewSummary is the tool output for one review
type ReviewSummary struct {
	ID          int64   `json:"id"`
	User        string  `json:"user"`
	State       string  `json:"state"`
	Body        string  `json:"body"`
	SubmittedAt *string `json:"submitted_at,omitempty"`
	HTMLURL     string  `json:"html_url"`
}

func (u *User) login() string {
	if u == nil {
		return ""
	}
	return u.Login
}
