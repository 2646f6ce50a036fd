// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

// uint64 amounts are stored as their int64 bit pattern; sqlite3 rejects values with
// the high bit set.
const liquidationTableSchema = `CREATE TABLE IF NOT EXISTS liquidation (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	poolIndex INTEGER NOT NULL,
	poolID BLOB(32) NOT NULL,
	positionID BLOB(32) NOT NULL,
	owner BLOB(20) NOT NULL,
	keeperID BLOB(32) NOT NULL,
	operator BLOB(20) NOT NULL,
	liquidator BLOB(20) NOT NULL,
	amount INTEGER NOT NULL,
	claimedGasDebt INTEGER NOT NULL,
	nonce INTEGER NOT NULL,
	gasCost INTEGER NOT NULL,
	principal INTEGER NOT NULL,
	penalty INTEGER NOT NULL,
	keeperReward INTEGER NOT NULL,
	protocol INTEGER NOT NULL,
	remainder INTEGER NOT NULL,
	ownerReward INTEGER NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS liquidation_pool ON liquidation(poolIndex);
CREATE INDEX IF NOT EXISTS liquidation_keeper ON liquidation(keeperID);
CREATE UNIQUE INDEX IF NOT EXISTS liquidation_nonce ON liquidation(keeperID, nonce);`

const feeTableSchema = `CREATE TABLE IF NOT EXISTS fee (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	poolIndex INTEGER NOT NULL,
	collector BLOB(20) NOT NULL,
	amount INTEGER NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS fee_pool ON fee(poolIndex);`

const liquidationColumns = `poolIndex, poolID, positionID, owner, keeperID, operator, liquidator, amount, claimedGasDebt, nonce,
	gasCost, principal, penalty, keeperReward, protocol, remainder, ownerReward, timestamp`
