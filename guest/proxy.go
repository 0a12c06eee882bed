package guest

import (
	"context"
	"fmt"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
	bridgeerrors "github.com/reglet-dev/reglet-bridge/domain/errors"
	"github.com/reglet-dev/reglet-bridge/wireformat"
)

// ObjectProxy stands in for one remote object. Several proxies may name the
// same handle; releasing any of them releases the handle.
//
// Results that reference other remote objects come back as new proxies, one
// level per round trip. Everything else is returned as a plain Go value:
// nil, bool, int64, float64, string, []byte or []any.
type ObjectProxy struct {
	client *Client
	class  string
	handle entities.Handle
}

var _ wireformat.Handler = (*ObjectProxy)(nil)

// Handle returns the remote handle. It never contacts the host.
func (p *ObjectProxy) Handle() entities.Handle { return p.handle }

// ClassID returns the class identifier reported by the host, which may be
// empty for proxies built with Wrap. It never contacts the host.
func (p *ObjectProxy) ClassID() string { return p.class }

func (p *ObjectProxy) String() string {
	if p.class == "" {
		return fmt.Sprintf("ObjectProxy(%s)", p.handle.Pointer())
	}
	return fmt.Sprintf("ObjectProxy(%s %s)", p.class, p.handle.Pointer())
}

// Get reads a property: an exported field, a Get<Member> accessor or a
// zero-argument method on the host.
func (p *ObjectProxy) Get(ctx context.Context, member string) (any, error) {
	if member == "" {
		return nil, &bridgeerrors.InvalidArgumentError{Argument: "member", Reason: "cannot be empty"}
	}
	result, err := p.client.roundTrip(ctx, wireformat.ObjectRequestWire{
		Op:     wireformat.OpGet,
		Handle: p.handle.String(),
		Member: member,
	})
	if err != nil {
		return nil, err
	}
	return p.client.decode(result)
}

// Call invokes a method with positional arguments. Arguments may be Go
// primitives, slices of them or other proxies.
func (p *ObjectProxy) Call(ctx context.Context, member string, args ...any) (any, error) {
	if member == "" {
		return nil, &bridgeerrors.InvalidArgumentError{Argument: "member", Reason: "cannot be empty"}
	}
	wireArgs, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}
	result, err := p.client.roundTrip(ctx, wireformat.ObjectRequestWire{
		Op:     wireformat.OpCall,
		Handle: p.handle.String(),
		Member: member,
		Args:   wireArgs,
	})
	if err != nil {
		return nil, err
	}
	return p.client.decode(result)
}

// Set assigns a field without waiting for the host. Only local validation
// errors are returned; host failures are logged on the host.
func (p *ObjectProxy) Set(ctx context.Context, field string, value any) error {
	if field == "" {
		return &bridgeerrors.InvalidArgumentError{Argument: "field", Reason: "cannot be empty"}
	}
	v, err := wireformat.ValueOf(value)
	if err != nil {
		return &bridgeerrors.InvalidArgumentError{Argument: "value", Reason: err.Error()}
	}

	err = p.client.post(ctx, wireformat.ObjectRequestWire{
		Op:     wireformat.OpSet,
		Handle: p.handle.String(),
		Member: field,
		Value:  &v,
	})
	if err != nil {
		p.client.config.logger.Debug("guest: set not delivered", "handle", p.handle.String(), "field", field, "error", err)
	}
	return nil
}

// Release tells the host to drop the handle. It is sent every time; the host
// treats repeated releases as no-ops, so releasing twice never fails.
func (p *ObjectProxy) Release(ctx context.Context) error {
	_, err := p.client.roundTrip(ctx, wireformat.ObjectRequestWire{
		Op:     wireformat.OpRelease,
		Handle: p.handle.String(),
	})
	return err
}
