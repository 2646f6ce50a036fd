// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextFollowsDefault(t *testing.T) {
	logger := WithContext("pkg", "pool")

	var buf bytes.Buffer
	Init(Options{Verbosity: LegacyLevelDebug, JSON: true, Writer: &buf})
	defer Discard()

	logger.With("index", 3).Info("staked", "amount", 10)

	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "staked", rec["msg"])
	assert.Equal(t, "pool", rec["pkg"])
	assert.EqualValues(t, 3, rec["index"])
	assert.EqualValues(t, 10, rec["amount"])
}

func TestVerbosityFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Verbosity: LegacyLevelWarn, Writer: &buf})
	defer Discard()

	Debug("hidden")
	Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}
