package auth

import (
	"context"
	"errors"
	"fmt"

	domainUser "service-template/internal/domain/user"
	"service-template/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolveRoles computes the transitive closure of a user's roles: every
// directly assigned role plus all of its ancestors, in first-seen order.
// A user with no assignments resolves to an empty slice.
//
// The walk keeps a visited set keyed by role id. A well-formed role forest
// never revisits a node; if the persisted graph has been corrupted into a
// cycle, the revisit simply terminates that walk instead of looping.
func (s *Service) ResolveRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	direct, err := s.roles.ListDirectRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	visited := make(map[uuid.UUID]bool)
	names := make([]string, 0, len(direct))

	for _, role := range direct {
		current := role
		for current != nil {
			if visited[current.ID] {
				break
			}
			visited[current.ID] = true
			names = append(names, current.Name)

			if current.ParentRoleID == nil {
				break
			}

			parent, err := s.roles.GetByID(ctx, *current.ParentRoleID)
			if err != nil {
				if errors.Is(err, domainUser.ErrRoleNotFound) {
					// Dangling parent reference; treat as the root.
					logger.Warn("Role references missing parent",
						zap.String("role_id", current.ID.String()),
						zap.String("parent_role_id", current.ParentRoleID.String()),
						zap.String("event", "role_parent_missing"),
					)
					break
				}
				return nil, fmt.Errorf("failed to load parent role: %w", err)
			}
			current = parent
		}
	}

	return names, nil
}
