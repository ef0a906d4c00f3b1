// Package config loads the matching engine's ambient, environment-sourced
// settings the same way the rest of the codebase does: a .env file read
// through viper, with AutomaticEnv letting real environment variables
// override it.
package config

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/Aidin1998/ratiomatch/internal/matching/model"
)

// Config holds the engine's fee schedule and administrator identity.
type Config struct {
	TakerFeeBPS  uint64
	MakerFeeBPS  uint64
	FeeRecipient uuid.UUID
	Admin        uuid.UUID
	EscrowID     uuid.UUID
}

// Load reads MATCHING_TAKER_FEE_BPS, MATCHING_MAKER_FEE_BPS,
// MATCHING_FEE_RECIPIENT, MATCHING_ADMIN and MATCHING_ESCROW_ID from a
// .env file or the real environment, applying a safe zero-fee default
// when unset.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("matching/config: no .env file found: %v", err)
	}

	taker := viper.GetUint64("MATCHING_TAKER_FEE_BPS")
	maker := viper.GetUint64("MATCHING_MAKER_FEE_BPS")
	if taker > model.FeeBPSMax {
		return nil, fmt.Errorf("matching/config: MATCHING_TAKER_FEE_BPS=%d exceeds max %d", taker, model.FeeBPSMax)
	}
	if maker > model.FeeBPSMax {
		return nil, fmt.Errorf("matching/config: MATCHING_MAKER_FEE_BPS=%d exceeds max %d", maker, model.FeeBPSMax)
	}

	feeRecipient, err := parseOrNew("MATCHING_FEE_RECIPIENT")
	if err != nil {
		return nil, err
	}
	admin, err := parseOrNew("MATCHING_ADMIN")
	if err != nil {
		return nil, err
	}
	escrow, err := parseOrNew("MATCHING_ESCROW_ID")
	if err != nil {
		return nil, err
	}

	return &Config{
		TakerFeeBPS:  taker,
		MakerFeeBPS:  maker,
		FeeRecipient: feeRecipient,
		Admin:        admin,
		EscrowID:     escrow,
	}, nil
}

func parseOrNew(key string) (uuid.UUID, error) {
	v := viper.GetString(key)
	if v == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("matching/config: invalid %s: %w", key, err)
	}
	return id, nil
}
