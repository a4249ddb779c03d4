package service

import (
	"context"

	"anoa.com/peerlink/internal/entity"
	connectionRepo "anoa.com/peerlink/internal/modules/connection/repository"
	projectRepo "anoa.com/peerlink/internal/modules/project/repository"
	sponsorRepo "anoa.com/peerlink/internal/modules/sponsor/repository"
	"github.com/google/uuid"
)

// FactsLoader reads the relationship facts Resolve needs from storage.
type FactsLoader interface {
	Load(ctx context.Context, viewer Viewer, target *entity.StudentProfile) (Relationship, error)
	// LoadMany keys the result by target user id.
	LoadMany(ctx context.Context, viewer Viewer, targets []entity.StudentProfile) (map[uuid.UUID]Relationship, error)
}

type factsLoader struct {
	connections connectionRepo.ConnectionRepository
	sponsors    sponsorRepo.SponsorRepository
	projects    projectRepo.ProjectRepository
}

func NewFactsLoader(
	connections connectionRepo.ConnectionRepository,
	sponsors sponsorRepo.SponsorRepository,
	projects projectRepo.ProjectRepository,
) FactsLoader {
	return &factsLoader{connections: connections, sponsors: sponsors, projects: projects}
}

func (l *factsLoader) Load(ctx context.Context, viewer Viewer, target *entity.StudentProfile) (Relationship, error) {
	rel := Relationship{Connected: target.IsConnectedTo(viewer.UserID)}
	if viewer.UserID == target.UserID {
		return rel, nil
	}

	if viewer.Role == entity.RoleSponsor {
		sponsor, err := l.sponsors.FindByUserID(ctx, viewer.UserID)
		if err != nil {
			return rel, err
		}
		rel.Enrolled, err = l.projects.HasEnrollment(ctx, sponsor.ID, target.ID)
		return rel, err
	}

	if rel.Connected {
		return rel, nil
	}
	pending, err := l.connections.FindPendingBetween(ctx, viewer.UserID, target.UserID)
	if err != nil {
		return rel, err
	}
	rel.Pending = pending != nil
	return rel, nil
}

func (l *factsLoader) LoadMany(ctx context.Context, viewer Viewer, targets []entity.StudentProfile) (map[uuid.UUID]Relationship, error) {
	out := make(map[uuid.UUID]Relationship, len(targets))
	if len(targets) == 0 {
		return out, nil
	}

	if viewer.Role == entity.RoleSponsor {
		sponsor, err := l.sponsors.FindByUserID(ctx, viewer.UserID)
		if err != nil {
			return nil, err
		}
		projects, err := l.projects.FindBySponsor(ctx, sponsor.ID)
		if err != nil {
			return nil, err
		}
		enrolled := map[uuid.UUID]bool{}
		for _, p := range projects {
			for _, id := range p.EnrolledStudents {
				enrolled[id] = true
			}
		}
		for i := range targets {
			t := &targets[i]
			out[t.UserID] = Relationship{Connected: t.IsConnectedTo(viewer.UserID), Enrolled: enrolled[t.ID]}
		}
		return out, nil
	}

	received, err := l.connections.ListPendingReceived(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	sent, err := l.connections.ListPendingSent(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	pending := map[uuid.UUID]bool{}
	for _, r := range received {
		pending[r.SenderID] = true
	}
	for _, r := range sent {
		pending[r.ReceiverID] = true
	}

	for i := range targets {
		t := &targets[i]
		connected := t.IsConnectedTo(viewer.UserID)
		out[t.UserID] = Relationship{Connected: connected, Pending: !connected && pending[t.UserID]}
	}
	return out, nil
}
