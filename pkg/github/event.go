package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotPullRequest is returned when the workflow event has no pull request
var ErrNotPullRequest = errors.New("this action can only be run on pull request events")

// event is the subset of a workflow event payload we read
type event struct {
	Number      int `json:"number"`
	PullRequest *struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// LoadEvent reads the pull request from a workflow event payload such as the
// file named by GITHUB_EVENT_PATH.
func LoadEvent(path string) (PullRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PullRequest{}, fmt.Errorf("read event file: %w", err)
	}

	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		return PullRequest{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if ev.PullRequest == nil {
		return PullRequest{}, ErrNotPullRequest
	}

	pr := PullRequest{Number: ev.PullRequest.Number}
	if pr.Number == 0 {
		pr.Number = ev.Number
	}
	if ev.Repository.FullName != "" {
		pr.Owner, pr.Repo, err = ParseRepository(ev.Repository.FullName)
		if err != nil {
			return PullRequest{}, err
		}
	}
	return pr, nil
}

// ParseRepository splits "owner/name"
func ParseRepository(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return owner, repo, nil
}
