package model

// AwarenessUpdate carries the states of one or more peers. A nil State marks the peer as gone.
type AwarenessUpdate struct {
	Clients []AwarenessClient `json:"clients"`
}

// AwarenessClient is one peer's entry in an AwarenessUpdate.
type AwarenessClient struct {
	ClientID uint64          `json:"clientId"`
	Clock    uint64          `json:"clock"`
	State    *AwarenessState `json:"state"`
}

// AwarenessState is the JSON form of a peer's ephemeral state.
type AwarenessState struct {
	User   *AwarenessUser   `json:"user,omitempty"`
	Cursor *AwarenessCursor `json:"cursor,omitempty"`
}

// AwarenessUser is the identity a peer publishes.
type AwarenessUser struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// AwarenessCursor is a peer's selection.
type AwarenessCursor struct {
	Anchor int `json:"anchor"`
	Head   int `json:"head"`
}
