package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction INTEGER NOT NULL,
	units REAL NOT NULL,
	notional REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	fees REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy_id);
CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	total REAL NOT NULL,
	available REAL NOT NULL,
	allocated REAL NOT NULL,
	unrealized_pl REAL NOT NULL,
	equity REAL NOT NULL,
	open_trades INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
