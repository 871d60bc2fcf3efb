package service

import "feedhub/internal/models"

const (
	msgNotAuthenticated = "Not authenticated."
	msgNotAuthorized    = "Not authorized!"
)

// RequireAuthenticated rejects a missing identity. It runs before any lookup so an
// anonymous caller cannot probe which resources exist.
func RequireAuthenticated(actor *models.Identity) error {
	if actor == nil || actor.UserID == 0 {
		return models.NewUnauthorizedError(msgNotAuthenticated)
	}
	return nil
}

// AuthorizeMutation allows only the owner of a resource to change it.
func AuthorizeMutation(actorID, ownerID uint) error {
	if actorID == 0 || actorID != ownerID {
		return models.NewForbiddenError(msgNotAuthorized)
	}
	return nil
}
