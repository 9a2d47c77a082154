package services

import (
	"context"

	"github.com/scrimverse/tournament-engine/models"
	"github.com/scrimverse/tournament-engine/repositories"
)

// EntryProvider supplies the finalized, payment-confirmed entry list for a
// tournament. Registration and payment capture live in an external service;
// the engine only consumes the result, exactly once per round start.
type EntryProvider interface {
	FinalizedEntries(ctx context.Context, tournamentID int) ([]*models.TeamEntry, error)
}

// repoEntryProvider reads confirmed entries straight from the store, which
// the registration service populates.
type repoEntryProvider struct {
	entryRepo repositories.EntryRepository
}

func NewRepoEntryProvider(entryRepo repositories.EntryRepository) EntryProvider {
	return &repoEntryProvider{entryRepo: entryRepo}
}

func (p *repoEntryProvider) FinalizedEntries(ctx context.Context, tournamentID int) ([]*models.TeamEntry, error) {
	return p.entryRepo.ListByTournament(ctx, nil, tournamentID, true)
}
