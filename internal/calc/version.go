package calc

// EngineVersion identifies the calculation engine release. It is
// stamped on every result and participates in content-addressed
// identity: a formula change bumps the version, so results computed by
// different engine releases never collide.
const EngineVersion = "0.2.0"
