package domain

// PullRequestEvent mirrors only the fields of a GitHub pull_request webhook
// payload that this system relies on. Objects are pointers so a missing
// required object is distinguishable from an empty one.
type PullRequestEvent struct {
	Action       string        `json:"action"`
	PullRequest  *PullRequest  `json:"pull_request"`
	Repository   *Repository   `json:"repository"`
	Installation *Installation `json:"installation"`
}

type GitHubUser struct {
	Login string `json:"login"`
}

type PullRequest struct {
	Id     int64  `json:"id"`
	Number int    `json:"number"`
	Url    string `json:"url"`
}

type Repository struct {
	Name     string     `json:"name"`
	FullName string     `json:"full_name"`
	Owner    GitHubUser `json:"owner"`
}

type Installation struct {
	Id int64 `json:"id"`
}
