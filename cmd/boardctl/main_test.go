package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"taskboard-core/pkg/config"
	"taskboard-core/pkg/entity"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"
	"taskboard-core/pkg/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func run(t *testing.T, s *memstore.Store, args ...string) (string, error) {
	t.Helper()
	orig := openStore
	openStore = func(context.Context, *config.Config, *zap.Logger) (store.Store, error) {
		return s, nil
	}
	t.Cleanup(func() { openStore = orig })

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"boardctl", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestBootstrap(t *testing.T) {
	s := memstore.New()

	out, err := run(t, s, "bootstrap", "--company", "Acme", "--root-sub", "sub-root", "--root-name", "Road Runner")
	require.NoError(t, err)
	assert.Contains(t, out, "(Acme) created, root user sub-root")
	assert.Equal(t, 2, s.Len())

	out, err = run(t, s, "children", "--parent", "ALL-COMPANIES", "--prefix", "COMPANY-INFO.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "COMPANY-INFO."), out)
}

func TestGet(t *testing.T) {
	s := memstore.New()
	item, err := entity.EncodeBoard(entity.Board{CompanyID: "c1", ID: "b1", Name: "Roadmap"})
	require.NoError(t, err)
	require.NoError(t, s.PutOverwrite(context.Background(), item))

	key := keyspace.Board("c1", "b1")
	out, err := run(t, s, "get", "--item-id", key.ItemID, "--belongs-to", key.BelongsTo)
	require.NoError(t, err)
	assert.Contains(t, out, "Roadmap")

	_, err = run(t, s, "get", "--item-id", "nope", "--belongs-to", key.BelongsTo)
	assert.Error(t, err)
}

func TestChildrenPaging(t *testing.T) {
	s := memstore.New()
	for _, id := range []string{"b1", "b2", "b3"} {
		item, err := entity.EncodeBoard(entity.Board{CompanyID: "c1", ID: id, Name: id})
		require.NoError(t, err)
		require.NoError(t, s.PutOverwrite(context.Background(), item))
	}
	parent, prefix := keyspace.CompanyBoards("c1")

	out, err := run(t, s, "children", "--parent", parent, "--prefix", prefix, "--limit", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, keyspace.Board("c1", "b1").ItemID, lines[0])
	require.True(t, strings.HasPrefix(lines[2], "next cursor: "))

	cursor := strings.TrimPrefix(lines[2], "next cursor: ")
	out, err = run(t, s, "children", "--parent", parent, "--prefix", prefix, "--limit", "2", "--cursor", cursor)
	require.NoError(t, err)
	assert.Equal(t, keyspace.Board("c1", "b3").ItemID+"\n", out)
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := run(t, memstore.New(), "--table", "", "children", "--parent", "x")
	assert.Error(t, err)
}

func TestProductionNeedsNoTokenKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_PUBLIC_KEY", "")
	t.Setenv("DYNAMODB_ENDPOINT", "")

	s := memstore.New()
	require.NoError(t, s.PutOverwrite(context.Background(), store.KeyItem(keyspace.Company("c1"))))

	out, err := run(t, s, "--env", "production", "children", "--parent", "ALL-COMPANIES")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPANY-INFO.c1")

	_, err = run(t, s, "--env", "production", "--endpoint", "http://localhost:8000", "children", "--parent", "ALL-COMPANIES")
	assert.ErrorContains(t, err, "DYNAMODB_ENDPOINT")
}
