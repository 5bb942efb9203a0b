package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-deployer-sol/internal/chain"
	"token-deployer-sol/internal/chain/chaintest"
	"token-deployer-sol/internal/consts"
	"token-deployer-sol/internal/pkg/retry"
	"token-deployer-sol/internal/xerr"
)

type instantTimer struct{ ch chan time.Time }

func (t *instantTimer) Start(time.Duration) {
	t.ch = make(chan time.Time, 1)
	t.ch <- time.Now()
}
func (t *instantTimer) Stop()               {}
func (t *instantTimer) C() <-chan time.Time { return t.ch }

type fakeDialer struct {
	clients map[string]*chaintest.FakeClient
	dialed  []string
}

func (d *fakeDialer) dial(url string) chain.Client {
	d.dialed = append(d.dialed, url)
	return d.clients[url]
}

func newDialer(dead ...string) *fakeDialer {
	d := &fakeDialer{clients: map[string]*chaintest.FakeClient{}}
	for _, u := range []string{"https://a", "https://b", "https://c"} {
		c := chaintest.NewFakeClient(u)
		d.clients[u] = c
	}
	for _, u := range dead {
		d.clients[u].VersionErr = chaintest.ErrUnreachable
	}
	return d
}

func newManager(d *fakeDialer) *Manager {
	pool := NewPool(nil, []string{"https://a", "https://b", "https://c"})
	return NewManager(pool, d.dial, retry.ProbePolicy, retry.WithTimer(&instantTimer{}))
}

func TestConnect_FailoverToSecond(t *testing.T) {
	d := newDialer("https://a")
	conn, err := newManager(d).Connect(context.Background(), consts.ProfileDev)
	require.NoError(t, err)

	assert.Equal(t, "https://b", conn.Endpoint.URL)
	assert.Equal(t, "https://b", conn.Client.Endpoint())
	// A 按 probe 策略探测 2 次，B 一次成功，C 从未被触碰
	assert.Equal(t, 2, d.clients["https://a"].CallCount("getVersion"))
	assert.Equal(t, 1, d.clients["https://b"].TotalCalls())
	assert.Equal(t, 0, d.clients["https://c"].TotalCalls())
	assert.Equal(t, []string{"https://a", "https://b"}, d.dialed)
}

func TestConnect_FirstLive(t *testing.T) {
	d := newDialer()
	conn, err := newManager(d).Connect(context.Background(), consts.ProfileDev)
	require.NoError(t, err)
	assert.Equal(t, "https://a", conn.Endpoint.URL)
	assert.Equal(t, "1.18.26", conn.Version)
	assert.Equal(t, []string{"https://a"}, d.dialed)
}

func TestConnect_AllDead(t *testing.T) {
	d := newDialer("https://a", "https://b", "https://c")
	_, err := newManager(d).Connect(context.Background(), consts.ProfileDev)

	assert.True(t, errors.Is(err, xerr.ErrNoLiveEndpoint))
	assert.True(t, errors.Is(err, xerr.ErrNetworkTransient))
	for _, c := range d.clients {
		assert.Equal(t, 2, c.CallCount("getVersion"))
	}
}

func TestConnect_UnknownProfile(t *testing.T) {
	d := newDialer()
	_, err := newManager(d).Connect(context.Background(), "testnet")
	assert.True(t, errors.Is(err, xerr.ErrInvalidInput))
	assert.Empty(t, d.dialed)
}

func TestResolveProfile(t *testing.T) {
	for in, want := range map[string]string{
		"mainnet":      consts.ProfileMain,
		"mainnet-beta": consts.ProfileMain,
		"MAIN":         consts.ProfileMain,
		"devnet":       consts.ProfileDev,
		"dev":          consts.ProfileDev,
		"":             consts.ProfileDev,
	} {
		got, err := ResolveProfile(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ResolveProfile("testnet")
	assert.True(t, errors.Is(err, xerr.ErrInvalidInput))
}

func TestPoolDefaults(t *testing.T) {
	pool := NewPool(nil, nil)

	main, err := pool.Candidates(consts.ProfileMain)
	require.NoError(t, err)
	require.Len(t, main, 2)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", main[0].URL)

	dev, err := pool.Candidates(consts.ProfileDev)
	require.NoError(t, err)
	assert.Equal(t, "https://api.devnet.solana.com", dev[0].URL)
	assert.Equal(t, consts.ProfileDev, dev[0].Profile)

	// 返回的是副本
	dev[0].URL = "mutated"
	again, _ := pool.Candidates(consts.ProfileDev)
	assert.Equal(t, "https://api.devnet.solana.com", again[0].URL)
}
