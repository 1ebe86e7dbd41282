package cmd

import (
	"fmt"
	"time"

	"github.com/kilianp07/vbattery/config"
	"github.com/kilianp07/vbattery/core/ledger"
	"github.com/kilianp07/vbattery/core/runlog"
	infraledger "github.com/kilianp07/vbattery/infra/ledger"
	"github.com/kilianp07/vbattery/infra/logger"
)

func openRunLog(cfg config.RunLogConfig) (runlog.Store, error) {
	switch cfg.Backend {
	case "none":
		return runlog.NopStore{}, nil
	case "sqlite":
		return runlog.NewSQLiteStore(cfg.Path)
	case "jsonl":
		if cfg.MaxSizeMB > 0 {
			return runlog.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return runlog.NewJSONLStore(cfg.Path)
	}
	return nil, fmt.Errorf("unknown backend %s", cfg.Backend)
}

func openLedger(cfg config.LedgerConfig, loc *time.Location) (ledger.Store, error) {
	switch cfg.Backend {
	case "none":
		return ledger.NopStore{}, nil
	case "memory":
		logger.New("main").Warnf("ledger backend memory: daily records are dropped when the run ends")
		return ledger.NewMemoryStore(), nil
	case "sqlite":
		return infraledger.NewSQLiteStore(cfg.Path, loc)
	}
	return nil, fmt.Errorf("unknown backend %s", cfg.Backend)
}
