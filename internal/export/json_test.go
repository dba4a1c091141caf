package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typosniper/typo-sniper/internal/record"
)

func TestWriteJSONRoundTrips(t *testing.T) {
	records := []record.PermutationRecord{
		{Seed: "example.com", Domain: "examp1e.com", Fuzzer: "replacement", Registered: true, RiskScore: 20},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, record.ScanMeta{Seeds: []string{"example.com"}}, records))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Records, 1)
	assert.Equal(t, "examp1e.com", doc.Records[0].Domain)
	assert.Equal(t, []string{"example.com"}, doc.Meta.Seeds)
}
