package ir

// Version constants for persisted records and the engine.
const (
	// IRVersion is the version of the persisted selector representation.
	IRVersion = "1"

	// EngineVersion is the reanchor engine version.
	EngineVersion = "0.1.0"
)
