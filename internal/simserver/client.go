package simserver

import (
	"context"
	"fmt"
	"reflect"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls psim.v1.SimulationService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Step advances the remote simulation n times and returns its step count.
func (c *Client) Step(ctx context.Context, n uint64, opts ...grpc.CallOption) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, fullMethod("Step"), wrapperspb.UInt64(n), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// GetField returns the wire value of field name.
func (c *Client) GetField(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Value, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, fullMethod("GetField"), wrapperspb.String(name), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SetFields writes values to writable fields. Each value is encoded with
// EncodeValue, so it must be one of the field value types.
func (c *Client) SetFields(ctx context.Context, values map[string]any, opts ...grpc.CallOption) error {
	in := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(values))}
	for name, v := range values {
		wire, err := EncodeValue(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		in.Fields[name] = wire
	}
	return c.cc.Invoke(ctx, fullMethod("SetField"), in, new(emptypb.Empty), opts...)
}

// Snapshot returns every field of the remote simulation.
func (c *Client) Snapshot(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Snapshot"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFields maps every remote field name to its kind tag.
func (c *Client) ListFields(ctx context.Context, opts ...grpc.CallOption) (map[string]string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("ListFields"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	kinds := make(map[string]string, len(out.GetFields()))
	for name, v := range out.GetFields() {
		kinds[name] = v.GetStringValue()
	}
	return kinds, nil
}

// Value reads field name from the remote simulation as a T.
func Value[T any](ctx context.Context, c *Client, name string, opts ...grpc.CallOption) (T, error) {
	var zero T
	wire, err := c.GetField(ctx, name, opts...)
	if err != nil {
		return zero, err
	}
	v, err := DecodeValue(reflect.TypeFor[T](), wire)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
