package form

// Origin identifies who performs a value write. Only Manual writes are
// blocked by disabled or inactive slots.
type Origin int

const (
	Manual Origin = iota
	RuleEngineWrite
	ImportWrite
	SynthesisWrite
	Clear
)

var originNames = map[Origin]string{
	Manual:          "manual",
	RuleEngineWrite: "rule_engine",
	ImportWrite:     "import",
	SynthesisWrite:  "synthesis",
	Clear:           "clear",
}

var privilegedOrigins = map[Origin]bool{
	RuleEngineWrite: true,
	ImportWrite:     true,
	SynthesisWrite:  true,
	Clear:           true,
}

func (o Origin) String() string {
	if name, ok := originNames[o]; ok {
		return name
	}
	return "unknown"
}

// Privileged reports whether the origin may write a disabled slot.
func (o Origin) Privileged() bool {
	return privilegedOrigins[o]
}
