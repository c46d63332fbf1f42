package cursorsync

import (
	"github.com/knowtis/knowtis-collab/src/collab/entity"
)

// RemoteUserStates returns, in registry order, every other peer that published both a user and a cursor.
func RemoteUserStates(states []entity.AwarenessEntry, localClientID uint64) []entity.RemoteUserState {
	var result []entity.RemoteUserState
	for _, entry := range states {
		if entry.ClientID == localClientID || !entry.State.IsReady() {
			continue
		}
		result = append(result, entity.RemoteUserState{
			ClientID: entry.ClientID,
			User:     *entry.State.User,
			Cursor:   *entry.State.Cursor,
		})
	}
	return result
}

// ActiveCollaborators returns the other peers to show in a "who's here" indicator. Peers need a cursor and a
// non-empty name and color. The id of each user is its decimal client id.
func ActiveCollaborators(states []entity.AwarenessEntry, localClientID uint64) []entity.CollaborativeUser {
	result := []entity.CollaborativeUser{}
	for _, entry := range states {
		if entry.ClientID == localClientID || !entry.State.IsReady() {
			continue
		}
		user := entry.State.User
		if user.Name == "" || user.Color == "" {
			continue
		}
		result = append(result, entity.CollaborativeUser{
			ID:    entity.ClientIDString(entry.ClientID),
			Name:  user.Name,
			Color: user.Color,
		})
	}
	return result
}
