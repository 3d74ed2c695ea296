package gameserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
)

var _ combat.Progression = (*LogProgression)(nil)

// LogProgression records progression grants in the log. It stands in for the
// character progression service, which lives outside this process.
type LogProgression struct {
	logger *zap.Logger
}

// NewLogProgression returns a LogProgression writing to logger.
func NewLogProgression(logger *zap.Logger) *LogProgression {
	return &LogProgression{logger: logger.Named("progression")}
}

// GrantXP implements combat.Progression.
func (p *LogProgression) GrantXP(_ context.Context, characterID int64, amount int) error {
	p.logger.Info("xp granted", zap.Int64("character_id", characterID), zap.Int("xp", amount))
	return nil
}

// GrantRenown implements combat.Progression.
func (p *LogProgression) GrantRenown(_ context.Context, characterID int64, amount int) error {
	p.logger.Info("renown granted", zap.Int64("character_id", characterID), zap.Int("renown", amount))
	return nil
}

// AdjustFaction implements combat.Progression.
func (p *LogProgression) AdjustFaction(_ context.Context, characterID int64, faction string, delta int) error {
	p.logger.Info("faction adjusted",
		zap.Int64("character_id", characterID),
		zap.String("faction", faction),
		zap.Int("delta", delta),
	)
	return nil
}

// RecordKill implements combat.Progression.
func (p *LogProgression) RecordKill(_ context.Context, characterID int64, templateID string) error {
	p.logger.Debug("kill recorded", zap.Int64("character_id", characterID), zap.String("template", templateID))
	return nil
}
