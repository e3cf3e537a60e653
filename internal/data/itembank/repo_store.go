package itembank

import (
	"context"

	repos "github.com/yungbote/neurobridge-psychometrics/internal/data/repos/psychometrics"
	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
)

// RepoStore persists the item bank through the item_parameters table.
type RepoStore struct {
	repo repos.ItemParametersRepo
}

func NewRepoStore(repo repos.ItemParametersRepo) *RepoStore {
	return &RepoStore{repo: repo}
}

func (s *RepoStore) Get(ctx context.Context, itemID string) (*psy.ItemParameters, bool, error) {
	row, err := s.repo.Get(dbctx.Context{Ctx: ctx}, itemID)
	if err != nil {
		return nil, false, err
	}
	return row, row != nil, nil
}

func (s *RepoStore) Set(ctx context.Context, params *psy.ItemParameters) error {
	return s.repo.Upsert(dbctx.Context{Ctx: ctx}, params)
}

func (s *RepoStore) Evict(ctx context.Context, itemID string) error {
	return s.repo.Delete(dbctx.Context{Ctx: ctx}, itemID)
}
