package extractor

import (
	"encoding/json"
	"errors"
	"fmt"

	"deltawatch/internal/domain/entity"

	"github.com/google/go-github/v80/github"
)

// RepositoryInfo is the part of a repository document the contributors job needs.
type RepositoryInfo struct {
	FullName        string
	Stargazers      int
	ContributorsURL string
}

// ExtractRepository decodes a repository document. A document without a
// contributors URL is an extraction error: the second call has nowhere to go.
func ExtractRepository(payload *entity.Payload) (*RepositoryInfo, error) {
	if payload == nil {
		return nil, &entity.ExtractionError{Source: "payload", Err: entity.ErrInvalidInput}
	}
	var repo github.Repository
	if err := json.Unmarshal(payload.Body, &repo); err != nil {
		return nil, &entity.ExtractionError{Source: sourceOf(payload), Err: fmt.Errorf("decode repository: %w", err)}
	}
	if repo.GetContributorsURL() == "" {
		return nil, &entity.ExtractionError{Source: sourceOf(payload), Err: errors.New("repository has no contributors_url")}
	}
	return &RepositoryInfo{
		FullName:        repo.GetFullName(),
		Stargazers:      repo.GetStargazersCount(),
		ContributorsURL: repo.GetContributorsURL(),
	}, nil
}

// ContributorsExtractor decodes a contributor list. The profile URL is the
// id, falling back to the login; the title is "login (N contributions)".
type ContributorsExtractor struct{}

// Extract implements Extractor.
func (ContributorsExtractor) Extract(payload *entity.Payload) ([]entity.Item, error) {
	if payload == nil {
		return nil, &entity.ExtractionError{Source: "payload", Err: entity.ErrInvalidInput}
	}
	var contributors []*github.Contributor
	if err := json.Unmarshal(payload.Body, &contributors); err != nil {
		return nil, &entity.ExtractionError{Source: sourceOf(payload), Err: fmt.Errorf("decode contributors: %w", err)}
	}

	items := make([]entity.Item, 0, len(contributors))
	for _, c := range contributors {
		if c == nil {
			continue
		}
		id := c.GetHTMLURL()
		if id == "" {
			id = c.GetLogin()
		}
		if id == "" {
			continue
		}
		items = append(items, entity.Item{
			ID:    id,
			Title: fmt.Sprintf("%s (%d contributions)", c.GetLogin(), c.GetContributions()),
		})
	}
	return dedupe(items), nil
}
