package services

import (
	"context"
	"fmt"

	"hackergrows/internal/models"
	"hackergrows/internal/store"
)

// mutation is the state one create/delete action threads through its steps.
type mutation struct {
	tx      store.Store
	item    *models.Item
	actorID uint

	selfVote  *models.Vote
	canonical *models.Item
	uncast    int
	detached  int64
}

type step struct {
	name string
	run  func(ctx context.Context, m *mutation) error
}

// pipeline runs its steps in order inside one unit of work; each step sees
// the writes of the ones before it.
type pipeline []step

func (p pipeline) exec(ctx context.Context, m *mutation) error {
	for _, s := range p {
		if err := s.run(ctx, m); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
