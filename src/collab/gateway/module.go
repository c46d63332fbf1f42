package gateway

import (
	peertransport "github.com/knowtis/knowtis-collab/src/collab/gateway/peer-transport"
	"github.com/knowtis/knowtis-collab/src/collab/internal/broadcast"
	"go.uber.org/fx"
)

// Module provides the outbound connections of a tab: the cross-tab channel and the peer transport.
var Module = fx.Options(
	broadcast.Module,
	peertransport.Module,
)
