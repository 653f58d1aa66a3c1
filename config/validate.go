package config

import (
	"errors"
	"fmt"
)

// Validate rejects out-of-range values. Config errors are fatal at
// startup and cause a hot reload to be discarded.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if err := validateParams(cfg.Params); err != nil {
		return err
	}
	if err := validateOrders(cfg.Orders); err != nil {
		return err
	}
	if err := validateRisk(cfg.Risk); err != nil {
		return err
	}
	if cfg.Engine.Workers <= 0 {
		return errors.New("engine.workers must be > 0")
	}
	if cfg.Engine.DeadlineMarginMs < 0 {
		return errors.New("engine.deadline_margin_ms must be >= 0")
	}
	return nil
}

func validateParams(p Parameters) error {
	if p.BaseSpreadBps <= 0 {
		return errors.New("params.base_spread_bps must be > 0")
	}
	if p.RiskAversion < 0 {
		return errors.New("params.risk_aversion must be >= 0")
	}
	if p.MaxSpreadMultiplier < 1 {
		return errors.New("params.max_spread_multiplier must be >= 1")
	}
	if p.VolRef <= 0 {
		return errors.New("params.vol_ref must be > 0")
	}
	if p.VolWindow < 2 {
		return errors.New("params.vol_window must be >= 2")
	}
	if len(p.ImbalanceDepths) == 0 {
		return errors.New("params.imbalance_depths is required")
	}
	for _, d := range p.ImbalanceDepths {
		if d <= 0 {
			return fmt.Errorf("params.imbalance_depths entry %d must be > 0", d)
		}
	}
	if len(p.ImbalanceWeights) > len(p.ImbalanceDepths) {
		return errors.New("params.imbalance_weights longer than imbalance_depths")
	}
	if p.ImbalanceThreshold < 0 || p.ImbalanceThreshold > 1 {
		return errors.New("params.imbalance_threshold must be in [0,1]")
	}
	if p.OBIFactor < 0 || p.OBIFactor > 1 {
		return errors.New("params.obi_factor must be in [0,1]")
	}
	if p.InventorySkewStrength < 0 || p.InventorySkewStrength > 1 {
		return errors.New("params.inventory_skew_strength must be in [0,1]")
	}
	if p.MaxInventory <= 0 {
		return errors.New("params.max_inventory must be > 0")
	}
	if p.BaseOrderSize <= 0 {
		return errors.New("params.base_order_size must be > 0")
	}
	if p.MinSizeFraction < 0 || p.MinSizeFraction > 1 {
		return errors.New("params.min_size_fraction must be in [0,1]")
	}
	if p.Levels < 1 {
		return errors.New("params.levels must be >= 1")
	}
	if p.LevelSizeDecay <= 0 || p.LevelSizeDecay > 1 {
		return errors.New("params.level_size_decay must be in (0,1]")
	}
	if p.ToxicFlowPenalty < 1 {
		return errors.New("params.toxic_flow_penalty must be >= 1")
	}
	if p.SoftInventoryBand < 0 || p.SoftInventoryBand > 1 {
		return errors.New("params.soft_inventory_band must be in [0,1]")
	}
	return nil
}

func validateOrders(o OrderConfig) error {
	if o.PriceToleranceBps < 0 {
		return errors.New("orders.price_tolerance_bps must be >= 0")
	}
	if o.MaxOrderAgeFraction < 0 || o.MaxOrderAgeFraction > 1 {
		return errors.New("orders.max_order_age_fraction must be in [0,1]")
	}
	if o.MaxOpenOrders <= 0 {
		return errors.New("orders.max_open_orders must be > 0")
	}
	if o.MinExpiryMs > 0 && o.MaxExpiryMs > 0 && o.MinExpiryMs > o.MaxExpiryMs {
		return errors.New("orders.min_expiry_ms exceeds max_expiry_ms")
	}
	return nil
}

func validateRisk(r RiskConfig) error {
	if r.Window < 2 {
		return errors.New("risk.window must be >= 2")
	}
	if r.MinSamples < 2 {
		return errors.New("risk.min_samples must be >= 2")
	}
	if r.RecoveryCycles < 1 {
		return errors.New("risk.recovery_cycles must be >= 1")
	}
	if r.Step <= 0 || r.Step >= 1 {
		return errors.New("risk.step must be in (0,1)")
	}
	if r.MaxSpreadMult < 1 {
		return errors.New("risk.max_spread_mult must be >= 1")
	}
	if r.SizeFloor < 0 || r.SizeFloor > 1 {
		return errors.New("risk.size_floor must be in [0,1]")
	}
	switch r.OutlierMethod {
	case "median", "iqr":
	default:
		return fmt.Errorf("risk.outlier_method %q unknown", r.OutlierMethod)
	}
	if r.OutlierDistance <= 0 {
		return errors.New("risk.outlier_distance must be > 0")
	}
	return nil
}
