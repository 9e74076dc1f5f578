package github

// PullRequestsArgs contains parameters for listing pull requests
type PullRequestsArgs struct {
	Repo    string `json:"repo" jsonschema:"Repository name"`
	State   string `json:"state,omitempty" jsonschema:"State of pull requests to retrieve"`
	PerPage int    `json:"per_page,omitempty" jsonschema:"Number of results per page"`
	Page    int    `json:"page,omitempty" jsonschema:"Page number"`
}

// AddCommentArgs contains parameters for commenting on a pull request
type AddCommentArgs struct {
	Repo       string `json:"repo" jsonschema:"Repository name"`
	PullNumber int    `json:"pull_number" jsonschema:"Pull request number"`
	Body       string `json:"body" jsonschema:"Comment body (supports Markdown)"`
}

// PullDiffArgs contains parameters for fetching a pull request diff
type PullDiffArgs struct {
	Repo       string `json:"repo" jsonschema:"Repository name"`
	PullNumber int    `json:"pull_number" jsonschema:"Pull request number"`
	Format     string `json:"format,omitempty" jsonschema:"Format of the diff (diff or patch)"`
}

// PullFilesArgs contains parameters for listing changed files
type PullFilesArgs struct {
	Repo       string `json:"repo" jsonschema:"Repository name"`
	PullNumber int    `json:"pull_number" jsonschema:"Pull request number"`
	PerPage    int    `json:"per_page,omitempty" jsonschema:"Number of results per page"`
	Page       int    `json:"page,omitempty" jsonschema:"Page number"`
}

// PullReviewsArgs contains parameters for listing reviews
type PullReviewsArgs struct {
	Repo       string `json:"repo" jsonschema:"Repository name"`
	PullNumber int    `json:"pull_number" jsonschema:"Pull request number"`
	PerPage    int    `json:"per_page,omitempty" jsonschema:"Number of results per page"`
	Page       int    `json:"page,omitempty" jsonschema:"Page number"`
}
