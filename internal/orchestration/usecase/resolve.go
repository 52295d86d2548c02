package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
)

// resolveRecipients derives who is told about ev: an explicit user_id, else
// the owner of dossier_id, else every user linked to agent_id.
func (s *Usecase) resolveRecipients(ctx context.Context, ev entity.Event) ([]entity.Recipient, error) {
	ids, err := s.recipientIDs(ctx, ev)
	if err != nil {
		return nil, err
	}

	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return nil, entity.ErrRecipientNotFound
	}

	contacts, err := s.repoDB.ListRecipients(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	byID := lo.KeyBy(contacts, func(r entity.Recipient) string { return r.UserID })

	return lo.Map(ids, func(id string, _ int) entity.Recipient {
		if r, ok := byID[id]; ok {
			return r
		}
		return entity.Recipient{UserID: id}
	}), nil
}

func (s *Usecase) recipientIDs(ctx context.Context, ev entity.Event) ([]string, error) {
	if userID := ev.Payload.LookupString("user_id"); userID != "" {
		return []string{userID}, nil
	}

	if dossierID := ev.Payload.LookupString("dossier_id"); dossierID != "" {
		owner, err := s.repoDB.FindDossierOwner(ctx, dossierID)
		if errors.Is(err, goerror.ErrNotFound) {
			return nil, fmt.Errorf("%w: dossier %s has no owner", entity.ErrRecipientNotFound, dossierID)
		}
		if err != nil {
			return nil, fmt.Errorf("lookup dossier owner: %w", err)
		}
		return []string{owner}, nil
	}

	if agentID := ev.Payload.LookupString("agent_id"); agentID != "" {
		users, err := s.repoDB.ListAgentUsers(ctx, agentID)
		if err != nil {
			return nil, fmt.Errorf("lookup agent users: %w", err)
		}
		if len(users) == 0 {
			return nil, fmt.Errorf("%w: agent %s has no linked users", entity.ErrRecipientNotFound, agentID)
		}
		return users, nil
	}

	return nil, fmt.Errorf("%w: payload carries no user_id, dossier_id or agent_id", entity.ErrRecipientNotFound)
}
