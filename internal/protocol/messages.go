package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ActorID         string     `json:"actor_id"`
	ActorName       string     `json:"actor_name,omitempty"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	ActorID         string         `json:"actor_id"`
	Pools           []PoolObs      `json:"pools"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	SpellsDigest  string `json:"spells_digest"`
	SpellCount    int    `json:"spell_count"`
	RitualsDigest string `json:"rituals_digest"`
	RitualCount   int    `json:"ritual_count"`
}

// CAST (client -> server)
type CastMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	SpellID         string `json:"spell_id"`
}

// RITUAL (client -> server)
type RitualMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	RitualID        string `json:"ritual_id"`
	Origin          [3]int `json:"origin"`
}

// POOLS (client -> server): explicit pool query.
type PoolsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
}

// RESULT (server -> client): terminal state of one CAST or RITUAL.
type ResultMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ReqID           string  `json:"req_id,omitempty"`
	CastID          string  `json:"cast_id,omitempty"`
	Accepted        bool    `json:"accepted"`
	Code            string  `json:"code,omitempty"`
	Message         string  `json:"message,omitempty"`
	Kind            string  `json:"kind,omitempty"`
	Cost            float64 `json:"cost,omitempty"`
}

// MANA (server -> client): pool state push.
type ManaMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	ReqID           string    `json:"req_id,omitempty"`
	ActorID         string    `json:"actor_id"`
	Pools           []PoolObs `json:"pools"`
}

// EVENTS (server -> client): feedback lines produced by effects.
type EventsMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ReqID           string   `json:"req_id,omitempty"`
	Lines           []string `json:"lines"`
}

type PoolObs struct {
	Kind    string  `json:"kind"`
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
}
