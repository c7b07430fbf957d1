package service_test

import (
	"context"
	"io"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"
	"github.com/ziflex/lecho/v3"

	"github.com/getHush/hushhub.go/db"
	"github.com/getHush/hushhub.go/db/migrations"
	"github.com/getHush/hushhub.go/db/models"
	"github.com/getHush/hushhub.go/lib/mls"
	"github.com/getHush/hushhub.go/lib/service"
)

// newTestService spins up a service against a fresh in-memory sqlite
// database. A nil engine gets the default envelope engine.
func newTestService(t *testing.T, engine mls.Engine) *service.HushhubService {
	t.Helper()

	c := &service.Config{
		DatabaseUri:          "sqlite://:memory:",
		DatabaseTimeout:      10,
		QueueBufferSize:      64,
		QueueEnqueueTimeout:  1,
		ShutdownGraceSeconds: 2,
	}
	dbConn, err := db.Open(c)
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	if engine == nil {
		engine = mls.NewEnvelopeEngine()
	}
	return service.NewService(c, dbConn, lecho.New(io.Discard), engine)
}

// registerTestAccount persists a fresh account and puts it straight into
// the registry, bypassing the control-message path. Handler tests do not
// need the loop running.
func registerTestAccount(t *testing.T, svc *service.HushhubService) *models.Account {
	t.Helper()

	secretKey := nostr.GeneratePrivateKey()
	pubkey, err := nostr.GetPublicKey(secretKey)
	require.NoError(t, err)

	account := &models.Account{Pubkey: pubkey, SecretKey: secretKey}
	_, err = svc.DB.NewInsert().Model(account).Exec(context.Background())
	require.NoError(t, err)
	svc.Registry.Add(account)
	return account
}

func testEvent(id string, kind int, pubkey string, createdAt int64, content string, tags nostr.Tags) *nostr.Event {
	return &nostr.Event{
		ID:        id,
		PubKey:    pubkey,
		Kind:      kind,
		CreatedAt: nostr.Timestamp(createdAt),
		Content:   content,
		Tags:      tags,
	}
}

func countRows(t *testing.T, svc *service.HushhubService, model interface{}) int {
	t.Helper()
	count, err := svc.DB.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return count
}

// fakeEngine is a scriptable mls.Engine for handler tests.
type fakeEngine struct {
	inner       *nostr.Event
	envelopeErr error
	decoded     *mls.DecodedMessage
	groupErr    error
}

func (f *fakeEngine) ProcessEnvelope(ctx context.Context, secretKey string, outer *nostr.Event) (*nostr.Event, error) {
	if f.envelopeErr != nil {
		return nil, f.envelopeErr
	}
	return f.inner, nil
}

func (f *fakeEngine) ProcessGroupMessage(ctx context.Context, accountPubkey string, ev *nostr.Event) (*mls.DecodedMessage, error) {
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	return f.decoded, nil
}
