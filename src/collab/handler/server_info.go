package handler

import (
	"fmt"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/knowtis/knowtis-collab/src/collab/internal/core"
	"github.com/knowtis/knowtis-collab/src/collab/internal/serverinfofile"
)

const (
	_infoKeyUserID      = "user-id"
	_infoKeyUserName    = "user-name"
	_infoKeyChannelName = "channel-name"
	_infoKeyRoomPrefix  = "room-prefix"
)

// Output the identity of this tab and the names it collaborates under.
// The signaling server adds its own address fields when it starts.
func outputSessionInfo(cfg core.CollabConfig, user entity.CollaborativeUser, infofile serverinfofile.ServerInfoFile) error {
	fields := []struct{ key, value string }{
		{_infoKeyUserID, user.ID},
		{_infoKeyUserName, user.Name},
		{_infoKeyChannelName, cfg.ChannelName},
		{_infoKeyRoomPrefix, cfg.RoomPrefix},
	}
	for _, f := range fields {
		if err := infofile.UpdateField(f.key, f.value); err != nil {
			return fmt.Errorf("outputting %q to info file: %w", f.key, err)
		}
	}
	return nil
}
