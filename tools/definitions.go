package tools

import (
	"encoding/json"
	"math"

	"github.com/google/jsonschema-go/jsonschema"
)

// Categories
const (
	CategoryMath    = "math"
	CategoryAddress = "address"
	CategoryGitHub  = "github"
)

// AllTools contains all tool specifications, in registration order.
// Tool descriptions follow a structured format for LLM tool selection:
// - USE WHEN: Natural language triggers
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	{
		Name:     "add",
		Method:   "Add",
		Title:    "Add Numbers",
		Category: CategoryMath,
		Description: `Add two numbers.

PARAMETERS:
- a: First number (required)
- b: Second number (required)

RETURNS: a + b + 10, as a decimal string.`,
		ReadOnly:   true,
		Idempotent: true,
		LogArgs:    []string{"a", "b"},
	},
	{
		Name:     "address",
		Method:   "SearchAddress",
		Title:    "Search Japanese Address",
		Category: CategoryAddress,
		Description: `Search Japanese address by postal code.

USE WHEN: User gives a 7-digit Japanese postal code (郵便番号) and wants the address.

PARAMETERS:
- zipcode: 7 digits, no hyphen (required)

RETURNS: Prefecture, city and town joined, or a not-found message with the API status.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
		LogArgs:    []string{"zipcode"},
		Schema: func(s *jsonschema.Schema) {
			zip := property(s, "zipcode")
			zip.MinLength = ptr(7)
			zip.MaxLength = ptr(7)
			zip.Pattern = `^\d+$`
		},
	},
	{
		Name:     "github_get_pull_requests",
		Method:   "PullRequests",
		Title:    "Get Pull Requests",
		Category: CategoryGitHub,
		Description: `Get pull requests from a GitHub repository.

USE WHEN: User asks "what PRs are open", "list closed pull requests in X".

PARAMETERS:
- repo: Repository name under the configured owner (required)
- state: open, closed or all (default open)
- per_page: 1-100 (default 30)
- page: Page number (default 1)

RETURNS: JSON array of pull requests with number, title, state, author, timestamps, URL and head/base refs.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
		LogArgs:    []string{"repo", "state", "page"},
		Schema: func(s *jsonschema.Schema) {
			enum(s, "state", "open", "open", "closed", "all")
			pagination(s)
		},
	},
	{
		Name:     "github_add_comment",
		Method:   "AddComment",
		Title:    "Comment on Pull Request",
		Category: CategoryGitHub,
		Description: `Add a comment to a GitHub pull request.

USE WHEN: User asks to "comment on PR 12", "reply to the pull request".

PARAMETERS:
- repo: Repository name (required)
- pull_number: Pull request number (required)
- body: Comment text, Markdown supported (required)

RETURNS: Confirmation with the new comment's ID and URL.`,
		OpenWorld: true,
		LogArgs:   []string{"repo", "pull_number"},
		Schema: func(s *jsonschema.Schema) {
			positiveInt(s, "pull_number")
		},
	},
	{
		Name:     "github_get_pull_diff",
		Method:   "PullDiff",
		Title:    "Get Pull Request Diff",
		Category: CategoryGitHub,
		Description: `Get the diff of a GitHub pull request.

USE WHEN: User asks "show the changes in PR 3", "review this pull request".

PARAMETERS:
- repo: Repository name (required)
- pull_number: Pull request number (required)
- format: diff or patch (default diff)

RETURNS: Raw unified diff, or the patch series when format is patch.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
		LogArgs:    []string{"repo", "pull_number", "format"},
		Schema: func(s *jsonschema.Schema) {
			positiveInt(s, "pull_number")
			enum(s, "format", "diff", "diff", "patch")
		},
	},
	{
		Name:     "github_get_pull_files",
		Method:   "PullFiles",
		Title:    "Get Pull Request Files",
		Category: CategoryGitHub,
		Description: `Get the list of files changed in a GitHub pull request.

PARAMETERS:
- repo: Repository name (required)
- pull_number: Pull request number (required)
- per_page: 1-100 (default 30)
- page: Page number (default 1)

RETURNS: JSON array of files with status, line counts, blob URL and patch.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
		LogArgs:    []string{"repo", "pull_number", "page"},
		Schema: func(s *jsonschema.Schema) {
			positiveInt(s, "pull_number")
			pagination(s)
		},
	},
	{
		Name:     "github_get_pull_reviews",
		Method:   "PullReviews",
		Title:    "Get Pull Request Reviews",
		Category: CategoryGitHub,
		Description: `Get reviews for a GitHub pull request.

PARAMETERS:
- repo: Repository name (required)
- pull_number: Pull request number (required)
- per_page: 1-100 (default 30)
- page: Page number (default 1)

RETURNS: JSON array of reviews with reviewer, state, body and submission time.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
		LogArgs:    []string{"repo", "pull_number", "page"},
		Schema: func(s *jsonschema.Schema) {
			positiveInt(s, "pull_number")
			pagination(s)
		},
	},
}

// pagination applies the GitHub per_page and page bounds and defaults.
func pagination(s *jsonschema.Schema) {
	perPage := property(s, "per_page")
	perPage.Minimum = ptr(1.0)
	perPage.Maximum = ptr(100.0)
	perPage.Default = mustJSON(30)

	page := positiveInt(s, "page")
	page.Default = mustJSON(1)
}

// positiveInt bounds an integer property to 1..MaxInt32 so every accepted
// value decodes into a Go int.
func positiveInt(s *jsonschema.Schema, name string) *jsonschema.Schema {
	p := property(s, name)
	p.Minimum = ptr(1.0)
	p.Maximum = ptr(float64(math.MaxInt32))
	return p
}

// enum restricts a string property and sets its default.
func enum(s *jsonschema.Schema, name, def string, values ...string) {
	p := property(s, name)
	p.Enum = make([]any, 0, len(values))
	for _, v := range values {
		p.Enum = append(p.Enum, v)
	}
	p.Default = mustJSON(def)
}

// property returns a named property, panicking if the argument type lacks it.
func property(s *jsonschema.Schema, name string) *jsonschema.Schema {
	p, ok := s.Properties[name]
	if !ok || p == nil {
		panic("tools: schema has no property " + name)
	}
	return p
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// SpecByName returns the spec for a tool name.
func SpecByName(name string) (ToolSpec, bool) {
	for _, spec := range AllTools {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}
