package guest_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	"github.com/reglet-dev/reglet-bridge/guest"
	"github.com/reglet-dev/reglet-bridge/host"
	"github.com/reglet-dev/reglet-bridge/host/objects"
	"github.com/reglet-dev/reglet-bridge/infrastructure/memchan"
	"github.com/reglet-dev/reglet-bridge/wireformat"
	"github.com/stretchr/testify/require"
)

var allPermissions = []string{entities.PermissionFsInputStream, entities.PermissionFsOutputStream}

// newBridge connects a guest bridge to a real host session over memchan.
func newBridge(t *testing.T, perms []string, hostOpts []host.Option, opts ...guest.Option) *guest.Bridge {
	t.Helper()

	hostOpts = append([]host.Option{
		host.WithManifest(&entities.Manifest{Name: "test", Permissions: perms}),
	}, hostOpts...)
	h, err := host.NewHost(hostOpts...)
	require.NoError(t, err)

	globals, err := h.Pipe(context.Background())
	require.NoError(t, err)

	b := guest.New(globals, opts...)
	t.Cleanup(func() {
		_ = b.Close()
		_ = globals.Close()
	})
	return b
}

// scriptedHost is a hand-driven host end: the test reads what the guest
// posted and decides when and what to reply.
type scriptedHost struct {
	t     *testing.T
	end   *memchan.Endpoint
	inbox chan wireformat.Message
}

func newScripted(t *testing.T, names ...string) (*guest.Bridge, map[string]*scriptedHost) {
	t.Helper()
	return newScriptedWith(t, nil, names...)
}

func newScriptedWith(t *testing.T, opts []guest.Option, names ...string) (*guest.Bridge, map[string]*scriptedHost) {
	t.Helper()

	globals := memchan.NewGlobals()
	hosts := make(map[string]*scriptedHost, len(names))
	for _, name := range names {
		hostEnd, guestEnd := memchan.Pair(name)
		globals.Install(guestEnd)

		sh := &scriptedHost{t: t, end: hostEnd, inbox: make(chan wireformat.Message, 64)}
		hostEnd.AddListener(func(m wireformat.Message) { sh.inbox <- m })
		hosts[name] = sh
	}

	b := guest.New(globals, opts...)
	t.Cleanup(func() {
		_ = b.Close()
		_ = globals.Close()
	})
	return b, hosts
}

func (h *scriptedHost) expect() wireformat.Message {
	h.t.Helper()
	select {
	case m := <-h.inbox:
		return m
	case <-time.After(2 * time.Second):
		h.t.Fatal("guest posted nothing")
	}
	return wireformat.Message{}
}

func (h *scriptedHost) expectNothing() {
	h.t.Helper()
	select {
	case m := <-h.inbox:
		h.t.Fatalf("unexpected post: %s", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func (h *scriptedHost) reply(m wireformat.Message) {
	h.t.Helper()
	require.NoError(h.t, h.end.PostMessage(context.Background(), m))
}

// Greeter is a native object served by the host in object tests.
type Greeter struct {
	disposed *atomic.Int32
	Name     string
	Count    int
}

func (g *Greeter) ClassName() string { return "demo.Greeter" }

func (g *Greeter) Greet(prefix string) string { return prefix + ", " + g.Name }

func (g *Greeter) Child(name string) *Greeter {
	return &Greeter{Name: name, disposed: g.disposed}
}

func (g *Greeter) Sum(values ...int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func (g *Greeter) Adopt(other *Greeter) string { return g.Name + " adopts " + other.Name }

func (g *Greeter) Tag() string { return "ptr:42" }

// Ratio has no JSON representation.
func (g *Greeter) Ratio() float64 { return math.NaN() }

func (g *Greeter) Fail(ctx context.Context) error {
	if ctx == nil {
		return errors.New("no context")
	}
	return errors.New("boom")
}

func (g *Greeter) Dispose() error {
	g.disposed.Add(1)
	return nil
}

func greeterClasses(disposed *atomic.Int32) *objects.ClassRegistry {
	return objects.NewClassRegistry().MustRegister("demo.Greeter", func(_ context.Context, args []any) (any, error) {
		name := "world"
		if len(args) > 0 {
			s, ok := args[0].(string)
			if !ok {
				return nil, errors.New("name must be a string")
			}
			name = s
		}
		return &Greeter{Name: name, disposed: disposed}, nil
	})
}
