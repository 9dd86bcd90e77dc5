package state

import (
	"context"
	"encoding/json"
	"strings"

	"gridbot/internal/grid"
)

const LadderSnapshotKey = "grid:ladder_snapshot"

// LadderSnapshot is the persisted picture of the engine: the full grid
// snapshot plus the running trade statistics that survive rebuilds.
type LadderSnapshot struct {
	Grid           grid.Snapshot `json:"grid"`
	TradeCount     int           `json:"trade_count"`
	RealizedProfit string        `json:"realized_profit"`
	UpdatedAtMS    int64         `json:"updated_at_ms"`
}

func LoadLadderSnapshot(ctx context.Context, store Store) (LadderSnapshot, bool, error) {
	if store == nil {
		return LadderSnapshot{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, LadderSnapshotKey)
	if err != nil {
		return LadderSnapshot{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return LadderSnapshot{}, false, nil
	}
	var snapshot LadderSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return LadderSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func SaveLadderSnapshot(ctx context.Context, store Store, snapshot LadderSnapshot) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return store.Set(ctx, LadderSnapshotKey, string(payload))
}

// EncodeLadderSnapshot is used when the snapshot is written as part of
// a batch together with other keys.
func EncodeLadderSnapshot(snapshot LadderSnapshot) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
