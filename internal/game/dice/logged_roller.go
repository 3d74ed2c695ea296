package dice

import "go.uber.org/zap"

// Roller rolls dice expressions from per-call seeds and logs each roll at debug level.
type Roller struct {
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that logs each roll to logger.
//
// Precondition: logger must be non-nil.
func NewLoggedRoller(logger *zap.Logger) *Roller {
	return &Roller{logger: logger}
}

// RollSeeded evaluates expr with a SeededSource built from seed.
//
// Postcondition: for a fixed (expr, seed) the result is always the same.
func (r *Roller) RollSeeded(expr Expression, seed uint64) RollResult {
	result := Roll(expr, NewSeededSource(seed))
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
		zap.Uint64("seed", seed),
	)
	return result
}

// Percent logs and returns a percentage roll for seed.
func (r *Roller) Percent(label string, seed uint64, threshold int) bool {
	roll := Percent(seed)
	r.logger.Debug("percent roll",
		zap.String("label", label),
		zap.Int("roll", roll),
		zap.Int("threshold", threshold),
	)
	return roll < threshold
}
