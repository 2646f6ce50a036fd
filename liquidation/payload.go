// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liquidation

import "github.com/vechain/stakepool/pool"

// Payload is what a keeper signs to authorize one liquidation.
type Payload = pool.LiquidationPayload
