package activitypub

import (
	"bytes"
	"crypto/rsa"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	ap "github.com/fedinode/fedinode/internal/activitypub"
	"github.com/fedinode/fedinode/internal/aptest"
	"github.com/fedinode/fedinode/internal/crypto"
	"github.com/fedinode/fedinode/internal/httpsig"
	"github.com/fedinode/fedinode/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	localDomain = "fedinode.test"
	password    = "correct horse battery staple"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file:"+uuid.New().String()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	require.NoError(err)

	// deliveries run concurrently; sqlite in memory wants a single connection.
	sqlDB, err := db.DB()
	require.NoError(err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(db.AutoMigrate(models.AllTables()...))
	return db
}

// testEnv is an Env whose outbound requests are answered by an aptest.Transport.
type testEnv struct {
	*Env
	transport *aptest.Transport
	router    http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	tr := aptest.NewTransport()
	env := &Env{
		Env: &models.Env{
			DB:     db,
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
		Store:         models.NewStore(db),
		Policy:        ap.DefaultPolicy(),
		ClientOptions: []ap.Option{ap.WithTransport(tr)},
	}
	r := chi.NewRouter()
	r.Route("/users/{username}", Routes(func(*http.Request) *Env { return env }))
	return &testEnv{Env: env, transport: tr, router: r}
}

// createActor creates a local actor called name.
func (e *testEnv) createActor(t *testing.T, name string) *models.Actor {
	t.Helper()
	actor, err := models.NewActors(e.DB).Create(name, localDomain, password)
	require.NoError(t, err)
	return actor
}

// do serves req and returns the recorded response.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// remote is a remote actor whose key is cached in the store.
type remote struct {
	uri string
	key *rsa.PrivateKey
	pem []byte
}

func (r *remote) inbox() string { return r.uri + "/inbox" }
func (r *remote) keyID() string { return r.uri + "#main-key" }

// newRemote returns a remote actor with a fresh keypair. The actor is cached
// in the store when cache is true.
func (e *testEnv) newRemote(t *testing.T, uri string, cache bool) *remote {
	t.Helper()
	require := require.New(t)
	kp, err := crypto.GenerateRSAKeypair()
	require.NoError(err)
	_, key, err := crypto.ParseRSAPrivateKey(kp.PrivateKey)
	require.NoError(err)
	r := &remote{uri: uri, key: key, pem: kp.PublicKey}
	if cache {
		require.NoError(models.NewRemoteActors(e.DB).Save(&models.RemoteActor{
			URI:         uri,
			Inbox:       r.inbox(),
			PublicKeyID: r.keyID(),
			PublicKey:   kp.PublicKey,
		}))
	}
	return r
}

// document returns the actor document of r.
func (r *remote) document() map[string]any {
	return map[string]any{
		"id":    r.uri,
		"type":  "Person",
		"inbox": r.inbox(),
		"publicKey": map[string]any{
			"id":           r.keyID(),
			"owner":        r.uri,
			"publicKeyPem": string(r.pem),
		},
	}
}

// signedPost returns a POST of doc to url signed by r.
func (r *remote) signedPost(t *testing.T, url string, doc map[string]any) *http.Request {
	t.Helper()
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	return r.signedPostBytes(t, url, body)
}

func (r *remote) signedPostBytes(t *testing.T, url string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest("POST", url, bytes.NewReader(body))
	req.Header.Set("Content-Type", ap.ContentType)
	require.NoError(t, httpsig.Sign(req, r.keyID(), r.key, body))
	return req
}

func inboxURL(username string) string {
	return "https://" + localDomain + "/users/" + username + "/inbox"
}

// decodeBody decodes the JSON body of w.
func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	return m
}
