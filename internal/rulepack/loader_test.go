package rulepack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

const jsonPack = `{
	"version": 1,
	"products": [
		{"id": "tea", "storeId": "cafe", "price": 3.5, "categories": ["hot"]}
	],
	"discounts": [
		{
			"storeId": "cafe",
			"type": "SIMPLE",
			"percentage": "0.5",
			"qualifier": {"type": "CATEGORY", "value": "hot"},
			"condition": {"type": "MAX_PRICE", "threshold": 20}
		}
	]
}`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tmp.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := pgzip.NewWriter(f)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	return out
}

func TestLoadFileYAML(t *testing.T) {
	p, err := LoadFile(context.Background(), filepath.Join("testdata", "coffee.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1, p.Version)
	require.Len(t, p.Products, 2)
	assert.True(t, decimal.RequireFromString("4").Equal(p.Products[1].Price))
	assert.Equal(t, []string{"coffee", "hot"}, p.Products[0].Categories)

	require.Len(t, p.Discounts, 1)
	launch := p.Discounts[0]
	assert.Equal(t, discount.DiscountMax, launch.Type)
	require.Len(t, launch.Discounts, 2)
	require.NotNil(t, launch.Discounts[0].Condition)
	assert.True(t, decimal.RequireFromString("2").Equal(launch.Discounts[0].Condition.Threshold))
	assert.True(t, decimal.RequireFromString("0.2").Equal(launch.Discounts[0].Percentage))
}

func TestLoadFileJSONAndGzip(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{name: "json", path: writeFile(t, dir, "tea.json", []byte(jsonPack))},
		{name: "gzipped json", path: writeFile(t, dir, "tea.json.gz", gzipBytes(t, []byte(jsonPack)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LoadFile(context.Background(), tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.path, p.Source)
			require.Len(t, p.Products, 1)
			assert.True(t, decimal.RequireFromString("3.5").Equal(p.Products[0].Price))
			require.Len(t, p.Discounts, 1)
			assert.Equal(t, discount.ConditionMaxPrice, p.Discounts[0].Condition.Type)
		})
	}
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		data    string
		wantErr error
	}{
		{
			name:    "bad percentage",
			file:    "bad.yaml",
			data:    "version: 1\ndiscounts:\n  - storeId: s\n    type: SIMPLE\n    percentage: 1.5\n    qualifier: {type: STORE}\n",
			wantErr: discount.ErrInvalidArgument,
		},
		{
			name: "unknown yaml field",
			file: "typo.yaml",
			data: "version: 1\ndiscount: []\n",
		},
		{
			name: "unsupported version",
			file: "v2.yaml",
			data: "version: 2\n",
		},
		{
			name: "empty",
			file: "empty.yml",
			data: "",
		},
		{
			name: "unsupported extension",
			file: "pack.toml",
			data: "version = 1",
		},
		{
			name: "unknown json field",
			file: "typo.json",
			data: `{"version": 1, "rules": []}`,
		},
		{
			name: "misspelled nested json field",
			file: "nested-typo.json",
			data: `{"version": 1, "discounts": [{"storeId": "cafe", "type": "OR", "discounts": [
				{"type": "SIMPLE", "percentge": "0.3", "qualifier": {"type": "STORE"}}
			]}]}`,
		},
		{
			name: "misspelled nested yaml field",
			file: "nested-typo.yaml",
			data: "version: 1\ndiscounts:\n  - storeId: cafe\n    type: OR\n    discounts:\n      - type: SIMPLE\n        percentge: 0.3\n        qualifier: {type: STORE}\n",
		},
		{
			name: "duplicate discount ids",
			file: "dup.yaml",
			data: "version: 1\ndiscounts:\n  - id: A\n    storeId: cafe\n    type: OR\n    discounts:\n      - id: A\n        type: SIMPLE\n        percentage: 0.3\n        qualifier: {type: STORE}\n",
			wantErr: discount.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, []byte(tt.data))
			_, err := LoadFile(context.Background(), path)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", []byte(jsonPack))
	writeFile(t, dir, "a.yaml", []byte("version: 1\ndescription: first\n"))
	writeFile(t, dir, "README.md", []byte("not a pack"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	packs, err := Load(context.Background(), dir, filepath.Join("testdata", "coffee.yaml"))
	require.NoError(t, err)
	require.Len(t, packs, 3)
	assert.Equal(t, "first", packs[0].Description)
	assert.Equal(t, filepath.Join(dir, "b.json"), packs[1].Source)
	assert.Equal(t, "Coffee shop launch promotions", packs[2].Description)

	_, err = Load(context.Background(), filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestPackJSONRoundTrip(t *testing.T) {
	p, err := LoadFile(context.Background(), filepath.Join("testdata", "coffee.yaml"))
	require.NoError(t, err)

	var e jx.Encoder
	p.Encode(&e)

	var got Pack
	require.NoError(t, got.Decode(jx.DecodeBytes(e.Bytes())))
	got.Source = p.Source
	require.NoError(t, got.Validate())
	assert.Len(t, got.Products, 2)
	assert.Equal(t, p.Discounts[0].Discounts[1].Qualifier, got.Discounts[0].Discounts[1].Qualifier)
}
